package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/auth"
	"github.com/shulehub/shule/core/user"
)

const contextUserKey = "user"

// authMiddleware resolves the bearer token into a live principal on every
// request: signature/expiry first, then a fresh read of the credential
// store so a deactivated account is rejected even with a valid token.
func authMiddleware(resolver *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw, err := extractBearerToken(ctx)
			if err != nil {
				return err
			}
			usr, err := resolver.Resolve(ctx.Request().Context(), raw)
			if err != nil {
				if errors.Cause(err) == auth.ErrUnauthenticated {
					return errUnauthenticated
				}
				return errors.Wrap(err, "resolving principal")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func extractBearerToken(ctx echo.Context) (string, error) {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errUnauthenticated
	}
	return header[len(prefix):], nil
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthenticated
}

// authenticate checks the credentials and returns the user. Unknown email,
// wrong password and deactivated account are deliberately indistinguishable.
func authenticate(ctx echo.Context, email, pwd string, svc user.ServiceInterface) (user.User, error) {
	usr, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.Active() {
		return user.User{}, errAuthenticationFailed
	}
	usr, err = svc.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// refreshToken issues a new token for the context user. The refresh window
// is bounded by the original issuance time; the account's active flag has
// already been re-checked by authMiddleware.
func (s *server) refreshToken(ctx echo.Context) (string, error) {
	raw, err := extractBearerToken(ctx)
	if err != nil {
		return "", err
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return "", errUnauthenticated
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.opts.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := s.tokens.MakeClaims(usr, claims.OrigIssuedAt)
	token, err := s.tokens.Generate(newClaims)
	return token, errors.Wrap(err, "generating token")
}
