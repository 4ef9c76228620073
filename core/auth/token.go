package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors. Both collapse to ErrUnauthenticated at the API boundary;
	// callers must not leak which check failed.
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity snapshot embedded in an access token at issuance.
// Role and Department are a snapshot only: authorization always re-reads the
// live principal record (see Resolver), so a department change takes effect
// without re-login and these fields serve logging/debugging.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role,omitempty"`
	Department   string    `json:"department,omitempty"`
}

// TokenService issues and verifies signed, time-limited identity tokens.
// Verification is a pure function over the secret and the token bytes; it
// never consults the credential store.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenService(conf *core.Config) *TokenService {
	return &TokenService{
		secret: []byte(conf.SecretKey),
		ttl:    conf.Server.JWTExpirationDelta,
		issuer: conf.AppName,
	}
}

// MakeClaims builds token claims for usr. origIat carries the original
// issuance time across refreshes.
func (ts *TokenService) MakeClaims(usr user.User, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ts.issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ts.ttl).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		Department:   usr.Department,
	}
}

// Generate signs claims into a compact token string.
func (ts *TokenService) Generate(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ts.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Issue generates a fresh token for usr.
func (ts *TokenService) Issue(usr user.User) (string, error) {
	return ts.Generate(ts.MakeClaims(usr))
}

// Verify checks the signature and expiry of a raw token string and returns
// its claims. It fails with ErrTokenExpired on expiry and ErrTokenInvalid on
// any other defect.
func (ts *TokenService) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return ts.secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
