package user

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/shulehub/shule/core"
)

// Role is the closed set of principal roles. A User carries exactly one Role
// and it is immutable after creation; there is no promotion flow.
type Role string

const (
	RoleStudent           Role = "student"
	RoleTeacher           Role = "teacher"
	RoleHOD               Role = "hod"
	RoleAdmin             Role = "admin"
	RoleManagingAuthority Role = "managing_authority"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleHOD, RoleAdmin, RoleManagingAuthority}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHOD, RoleAdmin, RoleManagingAuthority:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Department   string    `json:"department,omitempty"` // organizational unit; teachers & HODs only
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

// Active reports whether the account may authenticate. Unset counts as inactive.
func (u *User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsHOD() bool     { return u.Role == RoleHOD }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"omitempty"`
	Department      string `json:"department"`
}

func (nu *NewUser) Validate(validate *validator.Validate, translator ut.Translator) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Department = core.CleanString(nu.Department, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
	if !nu.Role.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role"})
	}
	return nil
}

// UpdateUser defines what information may be provided to modify an existing User.
// Role is deliberately absent: roles are immutable after creation.
type UpdateUser struct {
	Name            string `json:"name"`
	Department      string `json:"department"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	uu.Department = core.CleanString(uu.Department, true /* lower */)
	if uu.Department == "" {
		uu.Department = origUsr.Department
	}
	return validate.Struct(uu)
}
