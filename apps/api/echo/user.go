package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/auth"
	"github.com/shulehub/shule/core/user"
)

type userApi struct {
	srv    *server
	engine *auth.Engine
}

func registerUserAPI(g *echo.Group, s *server, authed echo.MiddlewareFunc, engine *auth.Engine) {
	api := userApi{srv: s, engine: engine}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/register", api.register)

	// authed endpoints
	ag := ug.Group("", authed)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("", api.query)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.srv.opts.Validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx, data.Email, data.Password, api.srv.opts.UserSvc)
	if err != nil {
		return err
	}
	token, err := api.srv.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// register creates an account. Anonymous registration is limited to the
// student role; an authenticated admin may create any role.
func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.srv.opts.Validate, api.srv.opts.Translator); err != nil {
		return err
	}

	if data.Role != user.RoleStudent {
		ctxUsr, err := api.optionalUser(ctx)
		if err != nil {
			return err
		}
		if api.engine.Authorize(ctxUsr, auth.ActionManageUsers, auth.Resource{}).Denied() {
			return errHttpForbidden
		}
	}

	usr, err := api.srv.opts.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if api.engine.Authorize(ctxUsr, auth.ActionManageUsers, auth.Resource{}).Denied() {
		return errHttpForbidden
	}

	users, err := api.srv.opts.UserSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	usr, err := api.srv.opts.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if usr.ID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	usr, err := api.srv.opts.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	if data.IsActive != nil {
		// flipping the active flag is an admin action; a HOD may deactivate
		// teachers within their own department.
		res := auth.Resource{ID: usr.ID, OwnerDepartment: usr.Department}
		action := auth.ActionManageUsers
		if ctxUsr.IsHOD() && usr.IsTeacher() {
			action = auth.ActionDeactivateUser
		}
		if api.engine.Authorize(ctxUsr, action, res).Denied() {
			return errHttpForbidden
		}
	} else if usr.ID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}
	if data.Department != "" && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}

	if err := data.Validate(usr, api.srv.opts.Validate); err != nil {
		return err
	}

	usr, err = api.srv.opts.UserSvc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if api.engine.Authorize(ctxUsr, auth.ActionManageUsers, auth.Resource{}).Denied() {
		return errHttpForbidden
	}

	usr, err := api.srv.opts.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.srv.opts.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.srv.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// optionalUser resolves the bearer token when present; registration of
// privileged roles requires it.
func (api *userApi) optionalUser(ctx echo.Context) (user.User, error) {
	raw, err := extractBearerToken(ctx)
	if err != nil {
		return user.User{}, errHttpForbidden
	}
	resolver := auth.NewResolver(api.srv.tokens, api.srv.opts.UserRepo)
	usr, err := resolver.Resolve(ctx.Request().Context(), raw)
	if err != nil {
		if errors.Cause(err) == auth.ErrUnauthenticated {
			return user.User{}, errUnauthenticated
		}
		return user.User{}, errors.Wrap(err, "resolving principal")
	}
	return usr, nil
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
