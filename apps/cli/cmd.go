package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/session"
	"github.com/trainingcmd/portal/core/user"
	"github.com/trainingcmd/portal/services/portalapi"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("you are not logged in, run: portal login -username USERNAME")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
	bus      *events.Bus
	sess     *session.Session
	api      *portalapi.Client
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME                 - log in; the password will be prompted next")
	fmt.Fprintln(cli.out, "  logout                                   - forget the current session")
	fmt.Fprintln(cli.out, "  forgot-password -email EMAIL             - get a password reset link by email")
	fmt.Fprintln(cli.out, "  reset-password -uid UID -token TOKEN     - choose a new password with a reset link")
	fmt.Fprintln(cli.out, "  whoami                                   - show the logged in user")
	fmt.Fprintln(cli.out, "  menu                                     - show the menu entries of your role")
	fmt.Fprintln(cli.out, "  profile show                             - show your profile")
	fmt.Fprintln(cli.out, "  profile set KEY=VALUE...                 - edit your profile (lists are comma-separated)")
	fmt.Fprintln(cli.out, "  avatar -file PATH                        - replace your avatar")
	fmt.Fprintln(cli.out, "  passwd                                   - change your password")
	fmt.Fprintln(cli.out, "  schedule [-admin] [-json]                - show the teaching schedule")
	fmt.Fprintln(cli.out, "  users [-role ROLE]                       - list the personnel (admin)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -role ROLE [-first NAME] [-last NAME] [-rank RANK] [-division DIV] [-email EMAIL]")
	fmt.Fprintln(cli.out, "                                           - create an account (admin); the password will be prompted next")
	fmt.Fprintln(cli.out, "  templates                                - list the evaluation templates (admin)")
	fmt.Fprintln(cli.out, "  evaluate -template ID -student ID -score KEY=N... [-comment TEXT]")
	fmt.Fprintln(cli.out, "                                           - evaluate a student (teacher)")
	fmt.Fprintln(cli.out, "  news [-limit N] [-html]                  - show the latest announcements")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args into fs, turning -h into errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := cli.newFlagSet("login")
	loginUname := loginCmd.String("username", "", "Your username. The password will be prompted next.")

	forgotCmd := cli.newFlagSet("forgot-password")
	forgotEmail := forgotCmd.String("email", "", "The email address of your account.")

	resetCmd := cli.newFlagSet("reset-password")
	resetUID := resetCmd.String("uid", "", "The uid of the reset link.")
	resetToken := resetCmd.String("token", "", "The token of the reset link. The new password will be prompted next.")

	avatarCmd := cli.newFlagSet("avatar")
	avatarFile := avatarCmd.String("file", "", "Path of the image to upload.")

	scheduleCmd := cli.newFlagSet("schedule")
	scheduleAdmin := scheduleCmd.Bool("admin", false, "List every schedule (admin).")
	scheduleJSON := scheduleCmd.Bool("json", false, "Print the calendar events as JSON.")

	usersCmd := cli.newFlagSet("users")
	usersRole := usersCmd.String("role", "", "Only list users with this role (admin, teacher, student).")

	addUserCmd := cli.newFlagSet("adduser")
	addUserUname := addUserCmd.String("username", "", "Username of the new account.")
	addUserRole := addUserCmd.String("role", "", "Role of the new account (admin, teacher, student).")
	addUserFirst := addUserCmd.String("first", "", "First name.")
	addUserLast := addUserCmd.String("last", "", "Last name.")
	addUserRank := addUserCmd.String("rank", "", "Military rank.")
	addUserDivision := addUserCmd.String("division", "", "Division.")
	addUserEmail := addUserCmd.String("email", "", "Email address.")

	evaluateCmd := cli.newFlagSet("evaluate")
	evaluateTmpl := evaluateCmd.String("template", "", "ID of the evaluation template.")
	evaluateStudent := evaluateCmd.String("student", "", "ID of the evaluated student.")
	evaluateComment := evaluateCmd.String("comment", "", "Optional comment.")
	evaluateScores := scoreFlag{}
	evaluateCmd.Var(evaluateScores, "score", "A criterion score as KEY=N. Repeat for every criterion.")

	newsCmd := cli.newFlagSet("news")
	newsLimit := newsCmd.Int("limit", 0, "Number of announcements to show.")
	newsHTML := newsCmd.Bool("html", false, "Print the bodies as sanitized HTML.")

	switch args[1] {
	case "login":
		if err := parse(loginCmd, args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, pwd)

	case "logout":
		return cli.logout(ctx)

	case "forgot-password":
		if err := parse(forgotCmd, args[2:]); err != nil {
			return err
		}
		if *forgotEmail == "" {
			forgotCmd.Usage()
			return errHelp
		}
		return cli.forgotPassword(ctx, *forgotEmail)

	case "reset-password":
		if err := parse(resetCmd, args[2:]); err != nil {
			return err
		}
		if *resetUID == "" || *resetToken == "" {
			resetCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetUID, *resetToken)

	case "whoami":
		return cli.whoami()

	case "menu":
		cli.menu()
		return nil

	case "profile":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		switch args[2] {
		case "show":
			return cli.showProfile(ctx)
		case "set":
			if len(args) < 4 {
				cli.printUsage()
				return errHelp
			}
			return cli.setProfile(ctx, args[3:])
		default:
			cli.printUsage()
			return errHelp
		}

	case "avatar":
		if err := parse(avatarCmd, args[2:]); err != nil {
			return err
		}
		if *avatarFile == "" {
			avatarCmd.Usage()
			return errHelp
		}
		return cli.uploadAvatar(ctx, *avatarFile)

	case "passwd":
		return cli.changePassword(ctx)

	case "schedule":
		if err := parse(scheduleCmd, args[2:]); err != nil {
			return err
		}
		return cli.schedule(ctx, *scheduleAdmin, *scheduleJSON)

	case "users":
		if err := parse(usersCmd, args[2:]); err != nil {
			return err
		}
		return cli.users(ctx, *usersRole)

	case "adduser":
		if err := parse(addUserCmd, args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.NewAccount{
			Username:  *addUserUname,
			Password:  pwd,
			Role:      *addUserRole,
			FirstName: *addUserFirst,
			LastName:  *addUserLast,
			Rank:      *addUserRank,
			Division:  *addUserDivision,
			Email:     *addUserEmail,
		})

	case "templates":
		return cli.templates(ctx)

	case "evaluate":
		if err := parse(evaluateCmd, args[2:]); err != nil {
			return err
		}
		if *evaluateTmpl == "" || *evaluateStudent == "" || len(evaluateScores) == 0 {
			evaluateCmd.Usage()
			return errHelp
		}
		return cli.evaluate(ctx, *evaluateTmpl, *evaluateStudent, evaluateScores, *evaluateComment)

	case "news":
		if err := parse(newsCmd, args[2:]); err != nil {
			return err
		}
		return cli.news(ctx, *newsLimit, *newsHTML)

	default:
		cli.printUsage()
		return errHelp
	}
}

// prompt reads a secret from the terminal.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// authenticated makes sure a session exists and its access token is fresh.
func (cli *commandLine) authenticated(ctx context.Context) error {
	if !cli.sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	return cli.api.EnsureFresh(ctx)
}

// splitAssignment splits "key=value".
func splitAssignment(arg string) (key, value string, ok bool) {
	i := strings.Index(arg, "=")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(arg[:i]), arg[i+1:], true
}
