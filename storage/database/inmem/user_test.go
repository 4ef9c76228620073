package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shulehub/shule/core/user"
	"github.com/shulehub/shule/tests"
)

func Test_userRepository_CreateUser_duplicateEmail(t *testing.T) {
	repo := NewUserRepository(NewDB())

	testutil.CreateUser(t, repo, "Awe Sir", "awe@test.cd", "", user.RoleStudent, "", true)

	_, err := repo.CreateUser(context.Background(), user.User{Name: "Impostor", Email: "AWE@test.cd"})
	if err != user.ErrEmailExists {
		t.Errorf("CreateUser() error = %v; want %v", err, user.ErrEmailExists)
	}
}

// N concurrent registrations with the same email: exactly one wins, the rest
// observe the same error a sequential duplicate would.
func Test_userRepository_CreateUser_concurrent(t *testing.T) {
	repo := NewUserRepository(NewDB())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateUser(ctx, user.User{
				Name:      "Awe Sir",
				Email:     "awe@test.cd",
				CreatedAt: time.Now().UTC(),
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
		case user.ErrEmailExists:
			dups++
		default:
			t.Errorf("CreateUser() unexpected error = %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d; want exactly 1", wins)
	}
	if dups != n-1 {
		t.Errorf("duplicates = %d; want %d", dups, n-1)
	}
}

func Test_userRepository_UpdateUser_partial(t *testing.T) {
	repo := NewUserRepository(NewDB())
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Awe Sir", "awe@test.cd", "s3cr3tpwd", user.RoleTeacher, "science", true)

	inactive := false
	got, err := repo.UpdateUser(ctx, user.User{ID: usr.ID, Name: "New Name"}, &inactive)
	if err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("Name = %v; want New Name", got.Name)
	}
	if got.Active() {
		t.Error("user should be deactivated")
	}
	// untouched fields survive
	if got.Email != usr.Email || got.Department != "science" || got.Role != user.RoleTeacher {
		t.Errorf("unset fields were clobbered: %+v", got)
	}
	if err := got.CheckPassword("s3cr3tpwd"); err != nil {
		t.Error("password hash should be unchanged")
	}
}
