package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/user"
)

var (
	// errors
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyEnrolled     = errors.New("student is already enrolled in this class")
	ErrNotEnrolled         = errors.New("student is not enrolled in this class")
	ErrDuplicateSubmission = errors.New("a submission for this assignment already exists")
)

type (
	// Repository is the persistence contract for the school domain.
	//
	// The three uniqueness-guarded writes (AddStudent, CreateSubmission,
	// UpsertAttendance) must be atomic: a "check existing, then insert"
	// implementation split over two calls is not acceptable, the losing
	// side of a concurrent duplicate attempt must observe the same tagged
	// error a sequential duplicate would.
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		DeleteClass(ctx context.Context, id string) error

		// AddStudent inserts into the membership set unless present;
		// fails with ErrAlreadyEnrolled otherwise.
		AddStudent(ctx context.Context, classID, studentID string) error
		// RemoveStudent removes from the membership set if present;
		// fails with ErrNotEnrolled otherwise.
		RemoveStudent(ctx context.Context, classID, studentID string) error

		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)

		// CreateSubmission inserts unless a submission for the same
		// (assignment, student) exists; fails with ErrDuplicateSubmission.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]Submission, error)
		QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
		UpdateSubmissionGrade(ctx context.Context, id, grade string) (Submission, error)

		// UpsertAttendance replaces any existing (class, student, date) record.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		QueryAttendanceByStudent(ctx context.Context, studentID string) ([]Attendance, error)
	}

	ServiceInterface interface {
		CreateClass(ctx context.Context, owner user.User, nc NewClass) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		Enroll(ctx context.Context, classID, studentID string) error
		Unenroll(ctx context.Context, classID, studentID string) error
		CreateAssignment(ctx context.Context, owner user.User, classID string, na NewAssignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		Submit(ctx context.Context, student user.User, assignmentID string, ns NewSubmission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		AssignmentSubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		Grade(ctx context.Context, submissionID, grade string) (Submission, error)
		MarkAttendance(ctx context.Context, recorder user.User, classID string, am AttendanceMark) (Attendance, error)
		StudentGrades(ctx context.Context, studentID string) ([]Submission, error)
		StudentAttendance(ctx context.Context, studentID string) ([]Attendance, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

// CreateClass records owner as the owning teacher; the owner's department is
// snapshotted on the class for organizational scoping.
func (svc *Service) CreateClass(ctx context.Context, owner user.User, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:       nc.Name,
		OwnerID:    owner.ID,
		Department: owner.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// Enroll adds a student to the class membership set. The duplicate check is
// delegated to the repository's atomic add.
func (svc *Service) Enroll(ctx context.Context, classID, studentID string) error {
	if err := svc.checkStudent(ctx, studentID); err != nil {
		return err
	}
	return svc.repo.AddStudent(ctx, classID, studentID)
}

func (svc *Service) Unenroll(ctx context.Context, classID, studentID string) error {
	return svc.repo.RemoveStudent(ctx, classID, studentID)
}

func (svc *Service) CreateAssignment(ctx context.Context, owner user.User, classID string, na NewAssignment) (Assignment, error) {
	a := Assignment{
		ClassID:     classID,
		OwnerID:     owner.ID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

// Submit records the student's one submission for the assignment. The
// (assignment, student) uniqueness is delegated to the repository's atomic
// insert; a losing concurrent attempt fails with ErrDuplicateSubmission.
func (svc *Service) Submit(ctx context.Context, student user.User, assignmentID string, ns NewSubmission) (Submission, error) {
	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    student.ID,
		Content:      ns.Content,
		SubmittedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *Service) AssignmentSubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByAssignment(ctx, assignmentID)
}

func (svc *Service) Grade(ctx context.Context, submissionID, grade string) (Submission, error) {
	return svc.repo.UpdateSubmissionGrade(ctx, submissionID, grade)
}

// MarkAttendance upserts the (class, student, date) record; a repeat mark for
// the same day replaces the earlier one. The student must be enrolled.
func (svc *Service) MarkAttendance(ctx context.Context, recorder user.User, classID string, am AttendanceMark) (Attendance, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return Attendance{}, err
	}
	if !cls.HasStudent(am.StudentID) {
		return Attendance{}, ErrNotEnrolled
	}

	att := Attendance{
		ClassID:    classID,
		StudentID:  am.StudentID,
		Date:       am.Date,
		Status:     am.Status,
		RecordedBy: recorder.ID,
		RecordedAt: time.Now().UTC(),
	}
	return svc.repo.UpsertAttendance(ctx, att)
}

// StudentGrades returns the student's graded submissions.
func (svc *Service) StudentGrades(ctx context.Context, studentID string) ([]Submission, error) {
	subs, err := svc.repo.QuerySubmissionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	graded := make([]Submission, 0, len(subs))
	for _, sub := range subs {
		if sub.Grade != "" {
			graded = append(graded, sub)
		}
	}
	return graded, nil
}

func (svc *Service) StudentAttendance(ctx context.Context, studentID string) ([]Attendance, error) {
	return svc.repo.QueryAttendanceByStudent(ctx, studentID)
}

func (svc *Service) checkStudent(ctx context.Context, studentID string) error {
	usr, err := svc.usrRepo.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "unknown student"})
		}
		return errors.Wrap(err, "loading student")
	}
	if usr.Role != user.RoleStudent {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}
	if !usr.Active() {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "account is deactivated"})
	}
	return nil
}
