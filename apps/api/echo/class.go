package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/auth"
	"github.com/shulehub/shule/core/school"
)

type classApi struct {
	srv    *server
	engine *auth.Engine
}

func registerClassAPI(g *echo.Group, s *server, authed echo.MiddlewareFunc, engine *auth.Engine) {
	api := classApi{srv: s, engine: engine}

	cg := g.Group("/classes", authed)
	cg.POST("", api.create)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.roster)
	dg.POST("/students", api.enroll)
	dg.DELETE("/students/:sid", api.unenroll)
	dg.POST("/attendance", api.markAttendance)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if api.engine.Authorize(ctxUsr, auth.ActionCreateClass, auth.Resource{}).Denied() {
		return errHttpForbidden
	}

	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.CreateClass(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

// retrieve returns the class with its roster. The class is loaded before any
// authorization check so a missing class reads as "not found" for everyone.
func (api *classApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionViewRoster, classResource(cls)).Denied() {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, cls)
}

// roster returns just the membership set.
func (api *classApi) roster(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionViewRoster, classResource(cls)).Denied() {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, echo.Map{"students": cls.Students})
}

func (api *classApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionDeleteClass, classResource(cls)).Denied() {
		return errHttpForbidden
	}

	if err := api.srv.opts.SchoolSvc.DeleteClass(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionEnrollStudent, classResource(cls)).Denied() {
		return errHttpForbidden
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.srv.opts.Validate.Struct(&data); err != nil {
		return err
	}

	if err := api.srv.opts.SchoolSvc.Enroll(ctx.Request().Context(), cls.ID, data.StudentID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionRemoveStudent, classResource(cls)).Denied() {
		return errHttpForbidden
	}

	if err := api.srv.opts.SchoolSvc.Unenroll(ctx.Request().Context(), cls.ID, ctx.Param("sid")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) markAttendance(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.srv.opts.SchoolSvc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if api.engine.Authorize(ctxUsr, auth.ActionMarkAttendance, classResource(cls)).Denied() {
		return errHttpForbidden
	}

	var data school.AttendanceMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceMark")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	att, err := api.srv.opts.SchoolSvc.MarkAttendance(ctx.Request().Context(), ctxUsr, cls.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

// classResource maps a class onto the facts the authorization predicates use.
func classResource(cls school.Class) auth.Resource {
	return auth.Resource{
		ID:              cls.ID,
		OwnerID:         cls.OwnerID,
		OwnerDepartment: cls.Department,
		Students:        cls.Students,
	}
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}
