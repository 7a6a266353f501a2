package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trainingcmd/portal/core/nav"
	"github.com/trainingcmd/portal/core/password"
	"github.com/trainingcmd/portal/core/user"
)

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	usr, err := cli.api.Login(ctx, uname, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s).\n", usr.DisplayName(), user.NormalizeRole(usr.Role))
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if !cli.sess.IsAuthenticated() {
		fmt.Fprintln(cli.out, "Not logged in.")
		return nil
	}
	if err := cli.sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) forgotPassword(ctx context.Context, email string) error {
	msg, err := cli.api.RequestPasswordReset(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, msg)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, uid, token string) error {
	pwd, err := cli.prompt("New password:")
	if err != nil {
		return err
	}
	confirm, err := cli.prompt("Confirm new password:")
	if err != nil {
		return err
	}
	switch {
	case pwd == "" || confirm == "":
		return password.ErrRequired
	case pwd != confirm:
		return password.ErrMismatch
	}

	msg, err := cli.api.ResetPassword(ctx, uid, token, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, msg)
	return nil
}

func (cli *commandLine) whoami() error {
	if !cli.sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	role := user.NormalizeRole(cli.sess.Role())
	if usr := cli.sess.User(); usr != nil {
		fmt.Fprintf(cli.out, "%s (%s), role %s\n", usr.DisplayName(), usr.Username, role)
		return nil
	}
	fmt.Fprintf(cli.out, "role %s\n", role)
	return nil
}

// menu prints the navigation entries visible to the session role.
func (cli *commandLine) menu() {
	gate := nav.NewGate(cli.bus, cli.sess.Role(), nav.DefaultRoutes)
	defer gate.Close()

	m := gate.Menu()
	if m.ShowLogin {
		fmt.Fprintln(cli.out, "Log in to see the menu: portal login -username USERNAME")
		return
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, r := range m.Items {
		fmt.Fprintf(w, "%s\t%s\n", r.Label, r.Path)
	}
	_ = w.Flush()
}
