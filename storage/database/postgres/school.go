package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehub/shule/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type classRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	OwnerID    string      `db:"owner_id"`
	Department null.String `db:"department"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type assignmentRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	OwnerID     string      `db:"owner_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueDate     null.String `db:"due_date"`
	CreatedAt   time.Time   `db:"created_at"`
}

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	Content      string      `db:"content"`
	Grade        null.String `db:"grade"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	GradedAt     null.Time   `db:"graded_at"`
}

type attendanceRow struct {
	ClassID    string    `db:"class_id"`
	StudentID  string    `db:"student_id"`
	Date       string    `db:"date"`
	Status     string    `db:"status"`
	RecordedBy string    `db:"recorded_by"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (r classRow) unmarshal(students []string) school.Class {
	if students == nil {
		students = []string{}
	}
	return school.Class{
		ID:         r.ID,
		Name:       r.Name,
		OwnerID:    r.OwnerID,
		Department: r.Department.String,
		Students:   students,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r assignmentRow) unmarshal() school.Assignment {
	return school.Assignment{
		ID:          r.ID,
		ClassID:     r.ClassID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description.String,
		DueDate:     r.DueDate.String,
		CreatedAt:   r.CreatedAt,
	}
}

func (r submissionRow) unmarshal() school.Submission {
	return school.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Content:      r.Content,
		Grade:        r.Grade.String,
		SubmittedAt:  r.SubmittedAt,
		GradedAt:     r.GradedAt.Time,
	}
}

func (r attendanceRow) unmarshal() school.Attendance {
	return school.Attendance{
		ClassID:    r.ClassID,
		StudentID:  r.StudentID,
		Date:       r.Date,
		Status:     school.AttendanceStatus(r.Status),
		RecordedBy: r.RecordedBy,
		RecordedAt: r.RecordedAt,
	}
}

// trapSchoolNoRowsErr maps psql "no rows" err to school.ErrNotFound
func trapSchoolNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	cls.ID = uuid.New().String()
	if cls.Students == nil {
		cls.Students = []string{}
	}

	const q = `
		INSERT INTO class (id, name, owner_id, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q,
		cls.ID, cls.Name, cls.OwnerID,
		null.NewString(cls.Department, cls.Department != ""),
		cls.CreatedAt, cls.UpdatedAt,
	)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Class{}, school.ErrNotFound
	}

	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return school.Class{}, trapSchoolNoRowsErr(err, "finding class by ID")
	}

	var students []string
	err := repo.db.SelectContext(ctx, &students,
		`SELECT student_id FROM class_student WHERE class_id = $1 ORDER BY enrolled_at`, id)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "querying class roster")
	}
	return row.unmarshal(students), nil
}

func (repo *schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM class ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		cls, err := repo.GetClassByID(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (repo *schoolRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

// AddStudent leans on the class_student primary key: a losing concurrent
// insert surfaces as a unique violation, mapped to school.ErrAlreadyEnrolled.
func (repo *schoolRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	const q = `INSERT INTO class_student (class_id, student_id, enrolled_at) VALUES ($1, $2, $3)`
	_, err := repo.db.ExecContext(ctx, q, classID, studentID, time.Now().UTC())
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
			switch pqErr.Code {
			case uniqueViolation:
				return school.ErrAlreadyEnrolled
			case "23503": // foreign key violation: unknown class or student
				return school.ErrNotFound
			}
		}
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *schoolRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM class_student WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotEnrolled
	}
	return nil
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, a school.Assignment) (school.Assignment, error) {
	a.ID = uuid.New().String()

	const q = `
		INSERT INTO assignment (id, class_id, owner_id, title, description, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		a.ID, a.ClassID, a.OwnerID, a.Title,
		null.NewString(a.Description, a.Description != ""),
		null.NewString(a.DueDate, a.DueDate != ""),
		a.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23503" {
			return school.Assignment{}, school.ErrNotFound
		}
		return school.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *schoolRepository) GetAssignmentByID(ctx context.Context, id string) (school.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Assignment{}, school.ErrNotFound
	}

	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		return school.Assignment{}, trapSchoolNoRowsErr(err, "finding assignment by ID")
	}
	return row.unmarshal(), nil
}

// CreateSubmission leans on the unique index on (assignment_id, student_id):
// exactly one of N concurrent attempts for the same key succeeds, the rest
// fail with school.ErrDuplicateSubmission.
func (repo *schoolRepository) CreateSubmission(ctx context.Context, sub school.Submission) (school.Submission, error) {
	sub.ID = uuid.New().String()

	const q = `
		INSERT INTO submission (id, assignment_id, student_id, content, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, q, sub.ID, sub.AssignmentID, sub.StudentID, sub.Content, sub.SubmittedAt)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
			switch pqErr.Code {
			case uniqueViolation:
				return school.Submission{}, school.ErrDuplicateSubmission
			case "23503":
				return school.Submission{}, school.ErrNotFound
			}
		}
		return school.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *schoolRepository) GetSubmissionByID(ctx context.Context, id string) (school.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Submission{}, school.ErrNotFound
	}

	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		return school.Submission{}, trapSchoolNoRowsErr(err, "finding submission by ID")
	}
	return row.unmarshal(), nil
}

func (repo *schoolRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]school.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM submission WHERE assignment_id = $1 ORDER BY submitted_at`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]school.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.unmarshal())
	}
	return subs, nil
}

func (repo *schoolRepository) QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]school.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM submission WHERE student_id = $1 ORDER BY submitted_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]school.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.unmarshal())
	}
	return subs, nil
}

func (repo *schoolRepository) UpdateSubmissionGrade(ctx context.Context, id, grade string) (school.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE submission SET grade = $2, graded_at = $3 WHERE id = $1 RETURNING *`,
		id, grade, time.Now().UTC())
	if err != nil {
		return school.Submission{}, trapSchoolNoRowsErr(err, "grading submission")
	}
	return row.unmarshal(), nil
}

// UpsertAttendance replaces any existing (class, student, date) record in a
// single conditional write.
func (repo *schoolRepository) UpsertAttendance(ctx context.Context, att school.Attendance) (school.Attendance, error) {
	const q = `
		INSERT INTO attendance (class_id, student_id, date, status, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (class_id, student_id, date)
		DO UPDATE SET status = EXCLUDED.status, recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at`
	_, err := repo.db.ExecContext(ctx, q,
		att.ClassID, att.StudentID, att.Date, string(att.Status), att.RecordedBy, att.RecordedAt)
	if err != nil {
		return school.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return att, nil
}

func (repo *schoolRepository) QueryAttendanceByStudent(ctx context.Context, studentID string) ([]school.Attendance, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM attendance WHERE student_id = $1 ORDER BY date`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]school.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.unmarshal())
	}
	return records, nil
}
