package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/trainingcmd/portal/core/schedule"
)

func (cli *commandLine) schedule(ctx context.Context, all, asJSON bool) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}

	var recs []schedule.Record
	var err error
	if all {
		recs, err = cli.api.Schedules(ctx)
	} else {
		recs, err = cli.api.MySchedules(ctx)
	}
	if err != nil {
		return err
	}
	evts := schedule.Adapt(recs)

	if asJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(evts)
	}
	if len(evts) == 0 {
		fmt.Fprintln(cli.out, "No scheduled sessions.")
		return nil
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tEND\tTITLE\tTEACHER\tLOCATION")
	for _, evt := range evts {
		end := evt.End
		if end == "" {
			end = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", evt.Start, end, evt.Title, evt.TeacherLabel, evt.Location)
	}
	return w.Flush()
}

func (cli *commandLine) users(ctx context.Context, role string) error {
	if err := cli.authenticated(ctx); err != nil {
		return err
	}
	usrs, err := cli.api.ListUsers(ctx, role)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tNAME\tRANK\tDIVISION")
	for i := range usrs {
		u := &usrs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.DisplayName(), u.Rank, u.Division)
	}
	return w.Flush()
}
