package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shulehub/shule/core/school"
	"github.com/shulehub/shule/core/user"
	"github.com/shulehub/shule/tests"
)

func newSchoolFixture(t *testing.T) (*schoolRepository, user.User, user.User, school.Class) {
	db := NewDB()
	usrRepo := NewUserRepository(db)
	repo := NewSchoolRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, "science", true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", user.RoleStudent, "", true)
	cls := testutil.CreateClass(t, repo, "Chemistry 101", teacher, student.ID)
	return repo, teacher, student, cls
}

func Test_schoolRepository_AddStudent(t *testing.T) {
	repo, _, student, cls := newSchoolFixture(t)
	ctx := context.Background()

	if err := repo.AddStudent(ctx, cls.ID, student.ID); err != school.ErrAlreadyEnrolled {
		t.Errorf("AddStudent() error = %v; want %v", err, school.ErrAlreadyEnrolled)
	}
	if err := repo.AddStudent(ctx, "nope", student.ID); err != school.ErrNotFound {
		t.Errorf("AddStudent() error = %v; want %v", err, school.ErrNotFound)
	}
}

// N concurrent enrollments of the same student: exactly one insert, the rest
// rejected, and the roster holds a single entry afterwards.
func Test_schoolRepository_AddStudent_concurrent(t *testing.T) {
	repo, teacher, _, _ := newSchoolFixture(t)
	ctx := context.Background()

	cls := testutil.CreateClass(t, repo, "Physics 101", teacher)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AddStudent(ctx, cls.ID, "stu-1")
		}()
	}
	wg.Wait()
	close(errs)

	var wins, dups int
	for err := range errs {
		switch err {
		case nil:
			wins++
		case school.ErrAlreadyEnrolled:
			dups++
		default:
			t.Errorf("AddStudent() unexpected error = %v", err)
		}
	}
	if wins != 1 || dups != n-1 {
		t.Errorf("wins = %d, dups = %d; want 1, %d", wins, dups, n-1)
	}

	cls, err := repo.GetClassByID(ctx, cls.ID)
	if err != nil {
		t.Fatalf("GetClassByID() failed: %v", err)
	}
	if len(cls.Students) != 1 {
		t.Errorf("roster size = %d; want 1", len(cls.Students))
	}
}

func Test_schoolRepository_RemoveStudent(t *testing.T) {
	repo, _, student, cls := newSchoolFixture(t)
	ctx := context.Background()

	if err := repo.RemoveStudent(ctx, cls.ID, student.ID); err != nil {
		t.Fatalf("RemoveStudent() failed: %v", err)
	}
	// removing an absent member is an error, not a no-op
	if err := repo.RemoveStudent(ctx, cls.ID, student.ID); err != school.ErrNotEnrolled {
		t.Errorf("RemoveStudent() error = %v; want %v", err, school.ErrNotEnrolled)
	}
}

// N concurrent submissions for the same (assignment, student): exactly one
// row exists afterwards.
func Test_schoolRepository_CreateSubmission_concurrent(t *testing.T) {
	repo, teacher, student, cls := newSchoolFixture(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, repo, cls, teacher, "Lab report")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateSubmission(ctx, school.Submission{
				AssignmentID: a.ID,
				StudentID:    student.ID,
				Content:      "my answer",
				SubmittedAt:  time.Now().UTC(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, dups int
	for err := range errs {
		switch err {
		case nil:
			wins++
		case school.ErrDuplicateSubmission:
			dups++
		default:
			t.Errorf("CreateSubmission() unexpected error = %v", err)
		}
	}
	if wins != 1 || dups != n-1 {
		t.Errorf("wins = %d, dups = %d; want 1, %d", wins, dups, n-1)
	}

	subs, err := repo.QuerySubmissionsByAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("QuerySubmissionsByAssignment() failed: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("submissions = %d; want 1", len(subs))
	}
}

func Test_schoolRepository_UpdateSubmissionGrade(t *testing.T) {
	repo, teacher, student, cls := newSchoolFixture(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, repo, cls, teacher, "Lab report")
	sub := testutil.CreateSubmission(t, repo, a, student, "my answer")

	got, err := repo.UpdateSubmissionGrade(ctx, sub.ID, "B")
	if err != nil {
		t.Fatalf("UpdateSubmissionGrade() failed: %v", err)
	}
	if got.Grade != "B" {
		t.Errorf("Grade = %v; want B", got.Grade)
	}
	if got.GradedAt.IsZero() {
		t.Error("GradedAt should be set")
	}

	if _, err := repo.UpdateSubmissionGrade(ctx, "nope", "A"); err != school.ErrNotFound {
		t.Errorf("UpdateSubmissionGrade() error = %v; want %v", err, school.ErrNotFound)
	}
}

// A repeat mark for the same (class, student, date) replaces the record; a
// different date adds a new one.
func Test_schoolRepository_UpsertAttendance(t *testing.T) {
	repo, teacher, student, cls := newSchoolFixture(t)
	ctx := context.Background()

	mark := func(date string, status school.AttendanceStatus) {
		_, err := repo.UpsertAttendance(ctx, school.Attendance{
			ClassID:    cls.ID,
			StudentID:  student.ID,
			Date:       date,
			Status:     status,
			RecordedBy: teacher.ID,
			RecordedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("UpsertAttendance() failed: %v", err)
		}
	}

	mark("2026-09-01", school.AttendancePresent)
	mark("2026-09-01", school.AttendanceAbsent) // correction
	mark("2026-09-02", school.AttendanceLate)

	records, err := repo.QueryAttendanceByStudent(ctx, student.ID)
	if err != nil {
		t.Fatalf("QueryAttendanceByStudent() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d; want 2", len(records))
	}
	byDate := make(map[string]school.AttendanceStatus, len(records))
	for _, r := range records {
		byDate[r.Date] = r.Status
	}
	if byDate["2026-09-01"] != school.AttendanceAbsent {
		t.Errorf("2026-09-01 status = %v; want %v", byDate["2026-09-01"], school.AttendanceAbsent)
	}
	if byDate["2026-09-02"] != school.AttendanceLate {
		t.Errorf("2026-09-02 status = %v; want %v", byDate["2026-09-02"], school.AttendanceLate)
	}
}
