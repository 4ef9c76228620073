package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/user"
)

// ErrUnauthenticated covers every authentication failure: missing, malformed,
// tampered or expired token, unknown principal, deactivated account. They are
// deliberately indistinguishable to the caller.
var ErrUnauthenticated = errors.New("user not authenticated")

// Resolver turns a raw bearer token into a live principal record.
//
// The token only proves identity. Role and department are re-read from the
// credential store on every request so that a deactivation or department
// change takes effect immediately, without waiting for token expiry. This is
// the sole early-revocation path and is never cached.
type Resolver struct {
	tokens *TokenService
	repo   user.Repository
}

func NewResolver(tokens *TokenService, repo user.Repository) *Resolver {
	return &Resolver{tokens: tokens, repo: repo}
}

// Resolve fails closed with ErrUnauthenticated on any verification or
// liveness failure. Unexpected storage errors propagate as-is.
func (r *Resolver) Resolve(ctx context.Context, raw string) (user.User, error) {
	claims, err := r.tokens.Verify(raw)
	if err != nil {
		return user.User{}, ErrUnauthenticated
	}

	usr, err := r.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, errors.Wrap(err, "loading principal")
	}
	if !usr.Active() {
		return user.User{}, ErrUnauthenticated
	}
	return usr, nil
}
