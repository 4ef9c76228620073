package inmemdb

import (
	"sync"

	"github.com/shulehub/shule/core/school"
	"github.com/shulehub/shule/core/user"
)

// DB is an in-memory database for development and tests. A single RWMutex
// guards all tables so that every uniqueness check happens under the same
// lock as its insert, the in-memory equivalent of a unique constraint.
type DB struct {
	mu sync.RWMutex

	users        map[string]*user.User
	usersByEmail map[string]string // lower(email) -> user ID

	classes     map[string]*school.Class
	assignments map[string]*school.Assignment

	submissions    map[string]*school.Submission
	submissionKeys map[string]string // assignmentID + "/" + studentID -> submission ID

	attendance map[string]*school.Attendance // classID + "/" + studentID + "/" + date
}

func NewDB() *DB {
	return &DB{
		users:          make(map[string]*user.User),
		usersByEmail:   make(map[string]string),
		classes:        make(map[string]*school.Class),
		assignments:    make(map[string]*school.Assignment),
		submissions:    make(map[string]*school.Submission),
		submissionKeys: make(map[string]string),
		attendance:     make(map[string]*school.Attendance),
	}
}

func submissionKey(assignmentID, studentID string) string {
	return assignmentID + "/" + studentID
}

func attendanceKey(classID, studentID, date string) string {
	return classID + "/" + studentID + "/" + date
}
