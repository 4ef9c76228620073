package main

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/shulehub/shule/core/user"
	"github.com/shulehub/shule/storage/database/inmem"
	"github.com/shulehub/shule/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.NewDB())
	return &commandLine{usrRepo: usrRepo}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v; wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v; wantErrStr %s", err, tt.wantErrStr)
				}
			default:
				if err != nil {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)
	mockPassword("s3cr3tpwd")

	runCliTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no flags", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addadmin", "-name", "Root"}, wantErr: errHelp},
		{name: "ok", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}},
		{name: "email taken", args: []string{"addadmin", "-name", "Root 2", "-email", "ROOT@test.cd"}, wantErr: user.ErrEmailExists},
	})

	usr, err := usrRepo.GetUserByEmail(context.Background(), "root@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if usr.Role != user.RoleAdmin {
		t.Errorf("Role = %v; want %v", usr.Role, user.RoleAdmin)
	}
	if !usr.Active() {
		t.Error("admin account should be active")
	}
	if err := usr.CheckPassword("s3cr3tpwd"); err != nil {
		t.Error("password should verify")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	mockPassword("n3w-s3cr3t")

	testutil.CreateUser(t, usrRepo, "Awe Sir", "awe@test.cd", "0ld-s3cr3t", user.RoleStudent, "", true)

	runCliTests(t, cli, []cliTest{
		{name: "no flags", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "unknown email", args: []string{"resetpassword", "-email", "nobody@test.cd"}, wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-email", "AWE@test.cd"}},
	})

	usr, err := usrRepo.GetUserByEmail(context.Background(), "awe@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if err := usr.CheckPassword("n3w-s3cr3t"); err != nil {
		t.Error("new password should verify")
	}
	if err := usr.CheckPassword("0ld-s3cr3t"); err == nil {
		t.Error("old password should no longer verify")
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand = command
		gotArgs = args
		switch command {
		case "up", "down", "redo", "reset", "status", "version", "up-to", "down-to", "create", "fix":
			return nil
		}
		return fmt.Errorf("%q: no such command", command)
	}

	runCliTests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
	})

	if gotCommand != "up-to" {
		t.Errorf("last command = %q; want up-to", gotCommand)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "2" {
		t.Errorf("last args = %v; want [2]", gotArgs)
	}
}
