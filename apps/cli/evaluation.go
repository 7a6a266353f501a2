package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/trainingcmd/portal/core/evaluation"
)

// scoreFlag collects repeated -score KEY=N flags.
type scoreFlag map[string]int

func (sf scoreFlag) String() string {
	keys := make([]string, 0, len(sf))
	for k := range sf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(sf[k]))
	}
	return strings.Join(parts, ",")
}

func (sf scoreFlag) Set(s string) error {
	key, value, ok := splitAssignment(s)
	if !ok {
		return fmt.Errorf("score %q must be of form KEY=N", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("score of %q must be a number (got %q)", key, value)
	}
	sf[key] = n
	return nil
}

func (cli *commandLine) templates(ctx context.Context) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	tmpls, err := cli.api.Templates(ctx)
	if err != nil {
		return err
	}
	if len(tmpls) == 0 {
		fmt.Fprintln(cli.out, "No evaluation templates.")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, tmpl := range tmpls {
		fmt.Fprintf(w, "%s\t%s\tmax %d\n", tmpl.ID, tmpl.Title, tmpl.MaxTotal())
		for _, c := range tmpl.Criteria {
			fmt.Fprintf(w, "\t  %s\t%s (0-%d)\n", c.Key, c.Label, c.MaxScore)
		}
	}
	return w.Flush()
}

func (cli *commandLine) evaluate(ctx context.Context, tmplID, studentID string, scores scoreFlag, comment string) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	ev, err := cli.api.SubmitEvaluation(ctx, evaluation.Submission{
		TemplateID: tmplID,
		StudentID:  studentID,
		Scores:     scores,
		Comment:    comment,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Evaluation %s saved: %d/%d.\n", ev.ID, ev.Total, ev.MaxTotal)
	return nil
}
