package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/auth"
	"github.com/shulehub/shule/core/school"
	"github.com/shulehub/shule/core/user"
)

type recordsApi struct {
	srv    *server
	engine *auth.Engine
}

func registerRecordsAPI(g *echo.Group, s *server, authed echo.MiddlewareFunc, engine *auth.Engine) {
	api := recordsApi{srv: s, engine: engine}

	rg := g.Group("/students/:id", authed)
	rg.GET("/grades", api.grades)
	rg.GET("/attendance", api.attendance)
}

// Handlers

func (api *recordsApi) grades(ctx echo.Context) error {
	student, err := api.authorizeRecordView(ctx)
	if err != nil {
		return err
	}

	subs, err := api.srv.opts.SchoolSvc.StudentGrades(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "querying student grades")
	}
	if subs == nil {
		subs = []school.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *recordsApi) attendance(ctx echo.Context) error {
	student, err := api.authorizeRecordView(ctx)
	if err != nil {
		return err
	}

	atts, err := api.srv.opts.SchoolSvc.StudentAttendance(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "querying student attendance")
	}
	if atts == nil {
		atts = []school.Attendance{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

// authorizeRecordView loads the target student and runs the record-view
// decision: students see only their own record, HODs only their department.
func (api *recordsApi) authorizeRecordView(ctx echo.Context) (user.User, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, err
	}

	student, err := api.srv.opts.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return user.User{}, err
	}
	if student.Role != user.RoleStudent {
		return user.User{}, user.ErrNotFound
	}

	res := auth.Resource{
		ID:              student.ID,
		OwnerDepartment: student.Department,
		TargetID:        student.ID,
	}
	if api.engine.Authorize(ctxUsr, auth.ActionViewRecord, res).Denied() {
		return user.User{}, errHttpForbidden
	}
	return student, nil
}
