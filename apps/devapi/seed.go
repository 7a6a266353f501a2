package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
)

const demoPassword = "Parade-Ground-1"

var demoAccounts = []user.NewAccount{
	{Username: "admin", Role: user.RoleAdmin, FirstName: "Unit", LastName: "Admin", Rank: "Captain"},
	{Username: "suksan", Role: user.RoleTeacher, FirstName: "Suksan", LastName: "Ruang", Rank: "Sergeant", Division: "Infantry"},
	{Username: "somchai", Role: user.RoleStudent, FirstName: "Somchai", LastName: "Dee", Rank: "Private", Division: "Infantry"},
}

// seed fills an empty store with demo accounts, a schedule, an evaluation template and an announcement.
func seed(ctx context.Context, usrSvc *user.Service, scheduleSvc *schedule.Service, evaluationSvc *evaluation.Service, newsSvc *news.Service) error {
	accs := make(map[string]user.Account, len(demoAccounts))
	for _, na := range demoAccounts {
		na.Password = demoPassword
		acc, err := usrSvc.Create(ctx, na)
		if err != nil {
			return errors.Wrapf(err, "creating %s", na.Username)
		}
		accs[acc.Role] = acc
	}

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	if _, err := scheduleSvc.Create(ctx, schedule.Input{
		Title:     "Rifle marksmanship",
		Start:     tomorrow.Format(time.RFC3339),
		End:       tomorrow.Add(2 * time.Hour).Format(time.RFC3339),
		TeacherID: accs[user.RoleTeacher].ID,
		Location:  "Range 2",
	}); err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	if _, err := scheduleSvc.Create(ctx, schedule.Input{
		Title: "Field exercise",
		Start: tomorrow.Add(48 * time.Hour).Format("2006-01-02"),
	}); err != nil {
		return errors.Wrap(err, "creating schedule")
	}

	if _, err := evaluationSvc.CreateTemplate(ctx, evaluation.NewTemplate{
		Title:       "Marksmanship qualification",
		Description: "Scored after each range session.",
		Criteria: []evaluation.Criterion{
			{Key: "safety", Label: "Weapon safety", MaxScore: 10},
			{Key: "accuracy", Label: "Accuracy", MaxScore: 50},
			{Key: "discipline", Label: "Fire discipline", MaxScore: 10},
		},
	}); err != nil {
		return errors.Wrap(err, "creating template")
	}

	admin := accs[user.RoleAdmin]
	if _, err := newsSvc.Publish(ctx, "Welcome to the training portal",
		"Check your **teaching schedule** and keep your medical information up to date.",
		admin.DisplayName()); err != nil {
		return errors.Wrap(err, "publishing news")
	}
	return nil
}
