package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trainingcmd/portal/core/password"
	"github.com/trainingcmd/portal/core/profile"
	"github.com/trainingcmd/portal/core/user"
)

// newEditor returns an editor loaded from the API, or from the cached session user when the API
// cannot be reached.
func (cli *commandLine) newEditor(ctx context.Context) *profile.Editor {
	editor := profile.NewEditor(cli.api, cli.bus, cli.logger)
	if !editor.Fetch(ctx) {
		editor.Load(cli.sess.User())
	}
	return editor
}

func (cli *commandLine) showProfile(ctx context.Context) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	form := cli.newEditor(ctx).Current()

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, key := range user.FieldKeys() {
		fmt.Fprintf(w, "%s\t%s\n", key, form.Text(key))
	}
	return w.Flush()
}

// setProfile applies KEY=VALUE edits, prints the diff and saves the changed keys.
func (cli *commandLine) setProfile(ctx context.Context, args []string) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	editor := cli.newEditor(ctx)
	for _, arg := range args {
		key, value, ok := splitAssignment(arg)
		if !ok {
			cli.printUsage()
			return errHelp
		}
		if err := editor.Set(key, value); err != nil {
			if errors.Cause(err) == profile.ErrNotEditable {
				return fmt.Errorf("%s: this field cannot be edited", key)
			}
			return err
		}
	}

	diff, err := formDiff(editor.Keys(), editor.Original(), editor.Current())
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cli.out, "No changes.")
		return nil
	}
	fmt.Fprint(cli.out, diff)

	res, err := editor.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Profile saved (%d field(s) updated).\n", len(res.Payload))
	return nil
}

// formDiff renders a unified diff of the keys of original and current, one "key: value" line per key.
func formDiff(keys []string, original, current profile.Form) (string, error) {
	lines := func(f profile.Form) []string {
		ls := make([]string, 0, len(keys))
		for _, key := range keys {
			ls = append(ls, key+": "+f.Text(key)+"\n")
		}
		return ls
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(original),
		B:        lines(current),
		FromFile: "saved",
		ToFile:   "edited",
		Context:  0,
	})
	if err != nil {
		return "", errors.Wrap(err, "rendering diff")
	}
	return diff, nil
}

func (cli *commandLine) uploadAvatar(ctx context.Context, path string) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	uploader, err := profile.NewAvatarUploader(cli.api, nil, cli.bus, cli.api.BaseURL())
	if err != nil {
		return err
	}
	displayURL, err := uploader.Upload(ctx, path, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Avatar updated:", displayURL)
	return nil
}

func (cli *commandLine) changePassword(ctx context.Context) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}

	var form password.ChangeForm
	var err error
	if form.Current, err = cli.prompt("Current password:"); err != nil {
		return err
	}
	if form.New, err = cli.prompt("New password:"); err != nil {
		return err
	}
	if form.Confirm, err = cli.prompt("Confirm new password:"); err != nil {
		return err
	}

	if err = password.NewChanger(cli.api, cli.validate).Submit(ctx, &form); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Password changed.")
	return nil
}
