package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/auth"
	"github.com/shulehub/shule/core/school"
)

type assignmentApi struct {
	srv    *server
	engine *auth.Engine
}

func registerAssignmentAPI(g *echo.Group, s *server, authed echo.MiddlewareFunc, engine *auth.Engine) {
	api := assignmentApi{srv: s, engine: engine}

	g.POST("/classes/:id/assignments", api.create, authed)

	ag := g.Group("/assignments/:id", authed)
	ag.GET("", api.retrieve)
	ag.POST("/submissions", api.submit)
	ag.GET("/submissions", api.querySubmissions)

	g.PUT("/submissions/:id/grade", api.grade, authed)
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionCreateAssignment, classResource(cls)).Denied() {
		return errHttpForbidden
	}

	var data school.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	a, err := api.srv.opts.SchoolSvc.CreateAssignment(ctx.Request().Context(), ctxUsr, cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	a, cls, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionViewRoster, assignmentResource(a, cls)).Denied() {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, a)
}

// submit records the student's single submission for the assignment; a
// duplicate attempt surfaces as a conflict.
func (api *assignmentApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	a, cls, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionSubmitAssignment, assignmentResource(a, cls)).Denied() {
		return errHttpForbidden
	}

	var data school.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	sub, err := api.srv.opts.SchoolSvc.Submit(ctx.Request().Context(), ctxUsr, a.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	a, cls, err := api.loadAssignment(ctx)
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionViewSubmissions, assignmentResource(a, cls)).Denied() {
		return errHttpForbidden
	}

	subs, err := api.srv.opts.SchoolSvc.AssignmentSubmissions(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []school.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// grade sets the letter grade on a submission. Ownership is checked against
// the assignment the submission belongs to.
func (api *assignmentApi) grade(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	sub, err := api.srv.opts.SchoolSvc.GetSubmission(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	a, err := api.srv.opts.SchoolSvc.GetAssignment(reqCtx, sub.AssignmentID)
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionGradeSubmission, auth.Resource{ID: sub.ID, OwnerID: a.OwnerID}).Denied() {
		return errHttpForbidden
	}

	var data school.GradeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	sub, err = api.srv.opts.SchoolSvc.Grade(reqCtx, sub.ID, data.Grade)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// loadAssignment resolves the assignment and its governing class; both loads
// happen before authorization so a bad id reads as "not found".
func (api *assignmentApi) loadAssignment(ctx echo.Context) (school.Assignment, school.Class, error) {
	reqCtx := ctx.Request().Context()
	a, err := api.srv.opts.SchoolSvc.GetAssignment(reqCtx, ctx.Param("id"))
	if err != nil {
		return school.Assignment{}, school.Class{}, err
	}
	cls, err := api.srv.opts.SchoolSvc.GetClass(reqCtx, a.ClassID)
	if err != nil {
		return school.Assignment{}, school.Class{}, err
	}
	return a, cls, nil
}

func assignmentResource(a school.Assignment, cls school.Class) auth.Resource {
	return auth.Resource{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		OwnerDepartment: cls.Department,
		Students:        cls.Students,
	}
}
