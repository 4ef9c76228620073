package school

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/shulehub/shule/core"
)

// Class is owned by the teacher who created it; ownership is captured at
// creation and never reassigned. Students is the membership set.
type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	Department string    `json:"department,omitempty"` // owning teacher's department at creation
	Students   []string  `json:"students"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (c *Class) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`         // UTC
}

// Submission is unique per (assignment, student); there is no resubmission
// path, a second attempt is rejected.
type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Content      string    `json:"content"`
	Grade        string    `json:"grade,omitempty"` // letter grade, set by the owning teacher
	SubmittedAt  time.Time `json:"submitted_at"`    // UTC
	GradedAt     time.Time `json:"graded_at,omitempty"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Attendance is keyed by (class, student, date). Unlike the other
// create-if-absent facts a repeat mark replaces the record, so same-day
// corrections are possible.
type Attendance struct {
	ClassID    string           `json:"class_id"`
	StudentID  string           `json:"student_id"`
	Date       string           `json:"date"` // YYYY-MM-DD
	Status     AttendanceStatus `json:"status"`
	RecordedBy string           `json:"recorded_by"`
	RecordedAt time.Time        `json:"recorded_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate, _ ut.Translator) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewAssignment struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,isodate"`
}

func (na *NewAssignment) Validate(validate *validator.Validate, _ ut.Translator) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

type NewSubmission struct {
	Content string `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate, _ ut.Translator) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

type AttendanceMark struct {
	StudentID string           `json:"student_id" validate:"required"`
	Date      string           `json:"date" validate:"required,isodate"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
}

func (am *AttendanceMark) Validate(validate *validator.Validate, _ ut.Translator) error {
	am.StudentID = core.CleanString(am.StudentID)
	am.Date = core.CleanString(am.Date)
	return validate.Struct(am)
}

type GradeInput struct {
	Grade string `json:"grade" validate:"required,oneof=A B C D E F"`
}

func (gi *GradeInput) Validate(validate *validator.Validate, _ ut.Translator) error {
	gi.Grade = core.CleanString(gi.Grade)
	return validate.Struct(gi)
}
