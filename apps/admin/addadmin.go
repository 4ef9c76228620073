package main

import (
	"context"
	"time"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/user"
)

// addAdmin creates an active admin account. Roles are immutable so an
// existing account cannot be promoted; the create fails on a taken email.
func (cli *commandLine) addAdmin(name, email, pwd string) error {
	now := time.Now().UTC()
	usr := user.User{
		Name:      core.CleanString(name),
		Email:     core.CleanString(email, true /* lower */),
		Role:      user.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err := cli.usrRepo.CreateUser(context.Background(), usr)
	return err
}
