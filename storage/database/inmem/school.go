package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shulehub/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cls.ID = uuid.New().String()
	if cls.Students == nil {
		cls.Students = []string{}
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(_ context.Context, id string) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryAllClasses(_ context.Context) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, *cls)
	}
	return classes, nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.classes, id)
	return nil
}

// AddStudent checks membership and appends under one lock; concurrent
// duplicate adds cannot both succeed.
func (repo *schoolRepository) AddStudent(_ context.Context, classID, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cls, ok := repo.db.classes[classID]
	if !ok {
		return school.ErrNotFound
	}
	if cls.HasStudent(studentID) {
		return school.ErrAlreadyEnrolled
	}
	cls.Students = append(cls.Students, studentID)
	return nil
}

func (repo *schoolRepository) RemoveStudent(_ context.Context, classID, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cls, ok := repo.db.classes[classID]
	if !ok {
		return school.ErrNotFound
	}
	for i, id := range cls.Students {
		if id == studentID {
			cls.Students = append(cls.Students[:i], cls.Students[i+1:]...)
			return nil
		}
	}
	return school.ErrNotEnrolled
}

func (repo *schoolRepository) CreateAssignment(_ context.Context, a school.Assignment) (school.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[a.ClassID]; !ok {
		return school.Assignment{}, school.ErrNotFound
	}
	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *schoolRepository) GetAssignmentByID(_ context.Context, id string) (school.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return school.Assignment{}, school.ErrNotFound
}

// CreateSubmission checks the (assignment, student) key and inserts under
// one lock; exactly one of N concurrent attempts for the same key succeeds.
func (repo *schoolRepository) CreateSubmission(_ context.Context, sub school.Submission) (school.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := submissionKey(sub.AssignmentID, sub.StudentID)
	if _, exists := repo.db.submissionKeys[key]; exists {
		return school.Submission{}, school.ErrDuplicateSubmission
	}

	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	repo.db.submissionKeys[key] = sub.ID
	return sub, nil
}

func (repo *schoolRepository) GetSubmissionByID(_ context.Context, id string) (school.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return school.Submission{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySubmissionsByAssignment(_ context.Context, assignmentID string) ([]school.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]school.Submission, 0)
	for _, sub := range repo.db.submissions {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (repo *schoolRepository) QuerySubmissionsByStudent(_ context.Context, studentID string) ([]school.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]school.Submission, 0)
	for _, sub := range repo.db.submissions {
		if sub.StudentID == studentID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (repo *schoolRepository) UpdateSubmissionGrade(_ context.Context, id, grade string) (school.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return school.Submission{}, school.ErrNotFound
	}
	sub.Grade = grade
	sub.GradedAt = time.Now().UTC()
	return *sub, nil
}

// UpsertAttendance replaces any existing (class, student, date) record.
func (repo *schoolRepository) UpsertAttendance(_ context.Context, att school.Attendance) (school.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.attendance[attendanceKey(att.ClassID, att.StudentID, att.Date)] = &att
	return att, nil
}

func (repo *schoolRepository) QueryAttendanceByStudent(_ context.Context, studentID string) ([]school.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]school.Attendance, 0)
	for _, att := range repo.db.attendance {
		if att.StudentID == studentID {
			records = append(records, *att)
		}
	}
	return records, nil
}
