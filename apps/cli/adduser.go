package main

import (
	"context"
	"fmt"

	"github.com/trainingcmd/portal/core/user"
)

// addUser creates an account through the admin API.
func (cli *commandLine) addUser(ctx context.Context, na user.NewAccount) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	usr, err := cli.api.CreateUser(ctx, na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "User %s created (%s, id %s).\n", usr.Username, user.NormalizeRole(usr.Role), usr.ID)
	return nil
}
