package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/school"
	"github.com/shulehub/shule/core/user"
)

// NewConfig returns a self-contained test configuration; nothing is read
// from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@test.cd",
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      8000,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	department string,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:       name,
		Email:      email,
		Role:       role,
		Department: department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo school.Repository, name string, owner user.User, studentIDs ...string) school.Class {
	t.Helper()

	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), school.Class{
		Name:       name,
		OwnerID:    owner.ID,
		Department: owner.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	for _, sid := range studentIDs {
		if err := repo.AddStudent(context.Background(), cls.ID, sid); err != nil {
			t.Fatalf("CreateClass() enroll failed: %v", err)
		}
	}
	cls, err = repo.GetClassByID(context.Background(), cls.ID)
	if err != nil {
		t.Fatalf("CreateClass() reload failed: %v", err)
	}
	return cls
}

func CreateAssignment(t *testing.T, repo school.Repository, cls school.Class, owner user.User, title string) school.Assignment {
	t.Helper()

	a, err := repo.CreateAssignment(context.Background(), school.Assignment{
		ClassID:   cls.ID,
		OwnerID:   owner.ID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

func CreateSubmission(t *testing.T, repo school.Repository, a school.Assignment, student user.User, content string) school.Submission {
	t.Helper()

	sub, err := repo.CreateSubmission(context.Background(), school.Submission{
		AssignmentID: a.ID,
		StudentID:    student.ID,
		Content:      content,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}
