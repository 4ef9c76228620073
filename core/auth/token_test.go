package auth

import (
	"testing"
	"time"

	"github.com/shulehub/shule/core/user"
	"github.com/shulehub/shule/tests"
)

func newTestTokenService() *TokenService {
	return NewTokenService(testutil.NewConfig())
}

func Test_TokenService_roundtrip(t *testing.T) {
	ts := newTestTokenService()
	usr := user.User{
		ID:         "4e8d7b1e-0a0a-4b6e-9f6e-0d6a1d1c0001",
		Name:       "Awe Sir",
		Email:      "awe@test.cd",
		Role:       user.RoleTeacher,
		Department: "science",
	}

	token, err := ts.Issue(usr)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claims.Subject != usr.ID {
		t.Errorf("Subject = %v; want %v", claims.Subject, usr.ID)
	}
	if claims.Email != usr.Email {
		t.Errorf("Email = %v; want %v", claims.Email, usr.Email)
	}
	if claims.Role != user.RoleTeacher {
		t.Errorf("Role = %v; want %v", claims.Role, user.RoleTeacher)
	}
	if claims.Department != "science" {
		t.Errorf("Department = %v; want science", claims.Department)
	}
	if claims.OrigIssuedAt != claims.IssuedAt {
		t.Errorf("OrigIssuedAt = %v; want %v", claims.OrigIssuedAt, claims.IssuedAt)
	}
}

func Test_TokenService_Verify_expired(t *testing.T) {
	ts := newTestTokenService()

	nowFunc = func() time.Time { return time.Now().Add(-24 * time.Hour) }
	defer func() { nowFunc = time.Now }()

	token, err := ts.Issue(user.User{ID: "some-id"})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err = ts.Verify(token); err != ErrTokenExpired {
		t.Errorf("Verify() error = %v; want %v", err, ErrTokenExpired)
	}
}

func Test_TokenService_Verify_invalid(t *testing.T) {
	ts := newTestTokenService()

	otherConf := testutil.NewConfig()
	otherConf.SecretKey = "not-the-same-secret-at-all-xxxxxxxxxxxxxxxxx"
	other := NewTokenService(otherConf)

	forged, err := other.Issue(user.User{ID: "some-id"})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "lol.lol.lol"},
		{"wrong signature", forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Verify(tt.raw); err != ErrTokenInvalid {
				t.Errorf("Verify() error = %v; want %v", err, ErrTokenInvalid)
			}
		})
	}
}

func Test_TokenService_MakeClaims_refresh(t *testing.T) {
	ts := newTestTokenService()
	usr := user.User{ID: "some-id"}

	oriat := time.Now().Add(-1 * time.Hour).Unix()
	claims := ts.MakeClaims(usr, oriat)
	if claims.OrigIssuedAt != oriat {
		t.Errorf("OrigIssuedAt = %v; want %v", claims.OrigIssuedAt, oriat)
	}
	if claims.IssuedAt == oriat {
		t.Error("IssuedAt should be fresh on refresh")
	}
}
