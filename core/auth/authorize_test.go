package auth

import (
	"testing"

	"github.com/shulehub/shule/core/user"
)

func Test_Engine_Authorize(t *testing.T) {
	engine := NewEngine(nil)

	student := user.User{ID: "stu-1", Role: user.RoleStudent}
	otherStudent := user.User{ID: "stu-2", Role: user.RoleStudent}
	teacher := user.User{ID: "tea-1", Role: user.RoleTeacher, Department: "science"}
	otherTeacher := user.User{ID: "tea-2", Role: user.RoleTeacher, Department: "science"}
	hod := user.User{ID: "hod-1", Role: user.RoleHOD, Department: "science"}
	lostHOD := user.User{ID: "hod-2", Role: user.RoleHOD} // department never assigned
	artsHOD := user.User{ID: "hod-3", Role: user.RoleHOD, Department: "arts"}
	admin := user.User{ID: "adm-1", Role: user.RoleAdmin}
	authority := user.User{ID: "aut-1", Role: user.RoleManagingAuthority}

	class := Resource{
		ID:              "cls-1",
		OwnerID:         teacher.ID,
		OwnerDepartment: teacher.Department,
		Students:        []string{student.ID},
	}
	studentRecord := Resource{ID: student.ID, OwnerDepartment: "science", TargetID: student.ID}

	tests := []struct {
		name       string
		usr        user.User
		action     Action
		res        Resource
		wantAllow  bool
		wantReason Reason
	}{
		{name: "unknown action fails closed", usr: admin, action: Action("class:explode"), res: class, wantReason: ReasonUnknownAction},

		// role gate
		{name: "student cannot create class", usr: student, action: ActionCreateClass, wantReason: ReasonRoleDenied},
		{name: "teacher creates class", usr: teacher, action: ActionCreateClass, wantAllow: true},
		{name: "hod cannot enroll", usr: hod, action: ActionEnrollStudent, res: class, wantReason: ReasonRoleDenied},
		{name: "authority cannot view submissions", usr: authority, action: ActionViewSubmissions, res: class, wantReason: ReasonRoleDenied},

		// ownership
		{name: "owner deletes class", usr: teacher, action: ActionDeleteClass, res: class, wantAllow: true},
		{name: "non-owner cannot delete class", usr: otherTeacher, action: ActionDeleteClass, res: class, wantReason: ReasonNotOwner},
		{name: "non-owner cannot grade", usr: otherTeacher, action: ActionGradeSubmission, res: class, wantReason: ReasonNotOwner},
		{name: "admin bypasses ownership", usr: admin, action: ActionDeleteClass, res: class, wantAllow: true},

		// membership
		{name: "enrolled student submits", usr: student, action: ActionSubmitAssignment, res: class, wantAllow: true},
		{name: "non-member cannot submit", usr: otherStudent, action: ActionSubmitAssignment, res: class, wantReason: ReasonNotEnrolled},
		{name: "enrolled student views roster", usr: student, action: ActionViewRoster, res: class, wantAllow: true},
		{name: "non-member cannot view roster", usr: otherStudent, action: ActionViewRoster, res: class, wantReason: ReasonNotEnrolled},

		// organizational scope
		{name: "hod deletes class in department", usr: hod, action: ActionDeleteClass, res: class, wantAllow: true},
		{name: "hod out of department", usr: artsHOD, action: ActionDeleteClass, res: class, wantReason: ReasonOutOfScope},
		{name: "hod without department fails closed", usr: lostHOD, action: ActionDeleteClass, res: class, wantReason: ReasonScopeUnassigned},
		{name: "hod views submissions in department", usr: hod, action: ActionViewSubmissions, res: class, wantAllow: true},

		// self-or-privileged record views
		{name: "student views own record", usr: student, action: ActionViewRecord, res: studentRecord, wantAllow: true},
		{name: "student cannot view another record", usr: otherStudent, action: ActionViewRecord, res: studentRecord, wantReason: ReasonForbidden},
		{name: "teacher views student record", usr: teacher, action: ActionViewRecord, res: studentRecord, wantAllow: true},
		{name: "authority views student record", usr: authority, action: ActionViewRecord, res: studentRecord, wantAllow: true},
		{name: "hod views record in department", usr: hod, action: ActionViewRecord, res: studentRecord, wantAllow: true},
		{name: "hod cannot view record out of department", usr: artsHOD, action: ActionViewRecord, res: studentRecord, wantReason: ReasonOutOfScope},
		{name: "admin views any record", usr: admin, action: ActionViewRecord, res: studentRecord, wantAllow: true},

		// user management
		{name: "admin manages users", usr: admin, action: ActionManageUsers, wantAllow: true},
		{name: "teacher cannot manage users", usr: teacher, action: ActionManageUsers, wantReason: ReasonRoleDenied},
		{name: "hod deactivates teacher in department", usr: hod, action: ActionDeactivateUser, res: Resource{ID: teacher.ID, OwnerDepartment: "science"}, wantAllow: true},
		{name: "hod cannot deactivate outside department", usr: artsHOD, action: ActionDeactivateUser, res: Resource{ID: teacher.ID, OwnerDepartment: "science"}, wantReason: ReasonOutOfScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Authorize(tt.usr, tt.action, tt.res)
			if d.Allowed != tt.wantAllow {
				t.Errorf("Authorize() allowed = %v; want %v (reason %q)", d.Allowed, tt.wantAllow, d.Reason)
			}
			if !tt.wantAllow && d.Reason != tt.wantReason {
				t.Errorf("Authorize() reason = %q; want %q", d.Reason, tt.wantReason)
			}
		})
	}
}
