package auth

import (
	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/user"
)

// Action identifies an operation subject to authorization.
type Action string

const (
	ActionCreateClass      Action = "class:create"
	ActionDeleteClass      Action = "class:delete"
	ActionViewRoster       Action = "class:view_roster"
	ActionEnrollStudent    Action = "class:enroll_student"
	ActionRemoveStudent    Action = "class:remove_student"
	ActionMarkAttendance   Action = "class:mark_attendance"
	ActionCreateAssignment Action = "assignment:create"
	ActionSubmitAssignment Action = "assignment:submit"
	ActionViewSubmissions  Action = "assignment:view_submissions"
	ActionGradeSubmission  Action = "assignment:grade"
	ActionViewRecord       Action = "student:view_record"
	ActionManageUsers      Action = "user:manage"
	ActionDeactivateUser   Action = "user:deactivate"
)

// Resource carries the facts about an already-loaded resource that the
// predicates need. Handlers load the resource first; a missing resource is
// "not found" before any predicate runs.
type Resource struct {
	ID              string
	OwnerID         string   // owning teacher
	OwnerDepartment string   // owning teacher's department, for HOD scoping
	Students        []string // membership set of the governing class
	TargetID        string   // the principal a record view concerns
}

// Reason names the first failing predicate. All reasons collapse to one
// externally visible "forbidden" status; they are kept for logging.
type Reason string

const (
	ReasonRoleDenied      Reason = "role_denied"
	ReasonNotOwner        Reason = "not_owner"
	ReasonNotEnrolled     Reason = "not_enrolled"
	ReasonScopeUnassigned Reason = "scope_unassigned"
	ReasonOutOfScope      Reason = "out_of_scope"
	ReasonForbidden       Reason = "forbidden"
	ReasonUnknownAction   Reason = "unknown_action"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(r Reason) Decision { return Decision{Reason: r} }

func (d Decision) Denied() bool { return !d.Allowed }

// rule declares which predicates apply to an action.
// roles is the static allow-set; the remaining flags switch on the
// ownership, membership, organizational-scope and self-or-privileged checks.
type rule struct {
	roles      []user.Role
	ownership  bool
	membership bool
	scoped     bool
	selfOrPriv bool
}

var rules = map[Action]rule{
	ActionCreateClass:      {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}},
	ActionDeleteClass:      {roles: []user.Role{user.RoleTeacher, user.RoleHOD, user.RoleAdmin}, ownership: true, scoped: true},
	ActionViewRoster:       {roles: []user.Role{user.RoleStudent, user.RoleTeacher, user.RoleHOD, user.RoleAdmin}, ownership: true, membership: true, scoped: true},
	ActionEnrollStudent:    {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}, ownership: true},
	ActionRemoveStudent:    {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}, ownership: true},
	ActionMarkAttendance:   {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}, ownership: true},
	ActionCreateAssignment: {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}, ownership: true},
	ActionSubmitAssignment: {roles: []user.Role{user.RoleStudent}, membership: true},
	ActionViewSubmissions:  {roles: []user.Role{user.RoleTeacher, user.RoleHOD, user.RoleAdmin}, ownership: true, scoped: true},
	ActionGradeSubmission:  {roles: []user.Role{user.RoleTeacher, user.RoleAdmin}, ownership: true},
	ActionViewRecord: {
		roles:      []user.Role{user.RoleStudent, user.RoleTeacher, user.RoleHOD, user.RoleAdmin, user.RoleManagingAuthority},
		scoped:     true,
		selfOrPriv: true,
	},
	ActionManageUsers:    {roles: []user.Role{user.RoleAdmin}},
	ActionDeactivateUser: {roles: []user.Role{user.RoleHOD, user.RoleAdmin}, scoped: true},
}

// Engine evaluates the fixed authorization rule set. It is a pure function
// of its inputs; every decision in the system flows through Authorize, and
// each one is logged with its reason.
type Engine struct {
	logger core.Logger
}

func NewEngine(logger core.Logger) *Engine {
	return &Engine{logger: logger}
}

// Authorize evaluates the predicate pipeline for (usr, action, res) in a
// fixed order; the first failing predicate names the denial reason.
// Unknown actions fail closed.
func (e *Engine) Authorize(usr user.User, action Action, res Resource) Decision {
	d := e.decide(usr, action, res)
	e.logDecision(usr, action, res, d)
	return d
}

func (e *Engine) decide(usr user.User, action Action, res Resource) Decision {
	r, ok := rules[action]
	if !ok {
		return Deny(ReasonUnknownAction)
	}

	// 1. role gate
	if !roleAllowed(r.roles, usr.Role) {
		return Deny(ReasonRoleDenied)
	}

	// admin bypasses all resource predicates; its ownership bypass is
	// universal and the remaining checks never target the admin role.
	if usr.Role == user.RoleAdmin {
		return Allow()
	}

	// 2. ownership (owning teachers only)
	if r.ownership && usr.Role == user.RoleTeacher {
		if res.OwnerID != usr.ID {
			return Deny(ReasonNotOwner)
		}
	}

	// 3. membership (students only)
	if r.membership && usr.Role == user.RoleStudent {
		if !containsID(res.Students, usr.ID) {
			return Deny(ReasonNotEnrolled)
		}
	}

	// 4. organizational scope (HODs only); an unassigned department fails
	// closed rather than defaulting to "no restriction".
	if r.scoped && usr.Role == user.RoleHOD {
		if usr.Department == "" {
			return Deny(ReasonScopeUnassigned)
		}
		if res.OwnerDepartment != usr.Department {
			return Deny(ReasonOutOfScope)
		}
	}

	// 5. self-or-privileged
	if r.selfOrPriv {
		switch usr.Role {
		case user.RoleStudent:
			if res.TargetID != usr.ID {
				return Deny(ReasonForbidden)
			}
		case user.RoleTeacher, user.RoleHOD, user.RoleManagingAuthority:
			// teachers and the managing authority are privileged viewers;
			// HODs already passed the scope predicate above.
		case user.RoleAdmin:
		}
	}

	return Allow()
}

func (e *Engine) logDecision(usr user.User, action Action, res Resource, d Decision) {
	if e.logger == nil {
		return
	}
	e.logger.Info("authorization decision", map[string]interface{}{
		"principal":  usr.ID,
		"role":       usr.Role,
		"department": usr.Department,
		"action":     action,
		"resource":   res.ID,
		"allowed":    d.Allowed,
		"reason":     d.Reason,
	})
}

func roleAllowed(roles []user.Role, role user.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
