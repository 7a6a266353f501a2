package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
	inmemdb "github.com/trainingcmd/portal/storage/database/inmem"
	pgrepos "github.com/trainingcmd/portal/storage/database/postgres"
	testutil "github.com/trainingcmd/portal/tests"
)

type repos struct {
	users     user.Repository
	schedules schedule.Repository
	evals     evaluation.Repository
	news      news.Repository
}

func backends(t *testing.T) map[string]func(t *testing.T) repos {
	return map[string]func(t *testing.T) repos{
		"inmem": func(t *testing.T) repos {
			db := inmemdb.Open()
			return repos{
				users:     inmemdb.NewUserRepository(db),
				schedules: inmemdb.NewScheduleRepository(db),
				evals:     inmemdb.NewEvaluationRepository(db),
				news:      inmemdb.NewNewsRepository(db),
			}
		},
		"postgres": func(t *testing.T) repos {
			db := testutil.PrepareDB(t)
			return repos{
				users:     pgrepos.NewUserRepository(db),
				schedules: pgrepos.NewScheduleRepository(db),
				evals:     pgrepos.NewEvaluationRepository(db),
				news:      pgrepos.NewNewsRepository(db),
			}
		},
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			somchai := testutil.CreateAccount(t, r.users, "somchai", "", user.RoleStudent, "Somchai", "Dee", true)
			testutil.CreateAccount(t, r.users, "suksan", "", user.RoleTeacher, "Suksan", "Ruang", true)

			_, err := r.users.CreateAccount(ctx, user.Account{User: user.User{Username: "somchai", Role: user.RoleStudent}, PasswordHash: []byte("x")})
			assert.Equal(t, user.ErrUsernameExists, err)

			got, err := r.users.GetAccountByUsername(ctx, "somchai")
			require.NoError(t, err)
			assert.Equal(t, somchai.ID, got.ID)
			assert.NoError(t, got.CheckPassword("p4ssw0rd!x"))

			_, err = r.users.GetAccountByID(ctx, "unknown")
			assert.Equal(t, user.ErrNotFound, err)

			got.FoodAllergies = user.List{"peanuts", "shrimp"}
			got.Phone = "0812345678"
			got.Email = "somchai@unit.test"
			_, err = r.users.UpdateAccount(ctx, got)
			require.NoError(t, err)
			got, err = r.users.GetAccountByID(ctx, somchai.ID)
			require.NoError(t, err)
			assert.Equal(t, user.List{"peanuts", "shrimp"}, got.FoodAllergies)
			assert.Equal(t, "0812345678", got.Phone)

			got, err = r.users.GetAccountByEmail(ctx, "Somchai@Unit.test")
			require.NoError(t, err)
			assert.Equal(t, somchai.ID, got.ID)
			_, err = r.users.GetAccountByEmail(ctx, "")
			assert.Equal(t, user.ErrNotFound, err)
			_, err = r.users.GetAccountByEmail(ctx, "nobody@unit.test")
			assert.Equal(t, user.ErrNotFound, err)

			teachers, err := r.users.FilterAccounts(ctx, user.QueryFilter{Role: user.RoleTeacher})
			require.NoError(t, err)
			require.Len(t, teachers, 1)
			assert.Equal(t, "suksan", teachers[0].Username)

			found, err := r.users.FilterAccounts(ctx, user.QueryFilter{Search: "DEE"})
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "somchai", found[0].Username)

			all, err := r.users.FilterAccounts(ctx, user.QueryFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestScheduleRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			late, err := r.schedules.Create(ctx, schedule.Schedule{Title: "Range", Start: "2024-03-02", TeacherID: "t1", CreatedAt: now, UpdatedAt: now})
			require.NoError(t, err)
			early, err := r.schedules.Create(ctx, schedule.Schedule{Title: "Drill", Start: "2024-03-01", CreatedAt: now, UpdatedAt: now})
			require.NoError(t, err)

			list, err := r.schedules.List(ctx, schedule.Filter{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, early.ID, list[0].ID)

			list, err = r.schedules.List(ctx, schedule.Filter{TeacherID: "t1"})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, late.ID, list[0].ID)

			late.Location = "Range 2"
			_, err = r.schedules.Update(ctx, late)
			require.NoError(t, err)
			got, err := r.schedules.Get(ctx, late.ID)
			require.NoError(t, err)
			assert.Equal(t, "Range 2", got.Location)

			require.NoError(t, r.schedules.Delete(ctx, late.ID))
			assert.Equal(t, schedule.ErrNotFound, r.schedules.Delete(ctx, late.ID))
			_, err = r.schedules.Get(ctx, late.ID)
			assert.Equal(t, schedule.ErrNotFound, err)
		})
	}
}

func TestEvaluationRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			student := testutil.CreateAccount(t, r.users, "somchai", "", user.RoleStudent, "", "", true)
			teacher := testutil.CreateAccount(t, r.users, "suksan", "", user.RoleTeacher, "", "", true)

			older, err := r.evals.CreateTemplate(ctx, evaluation.Template{Title: "Drill", Criteria: []evaluation.Criterion{{Key: "form", Label: "Form", MaxScore: 5}}, CreatedAt: now.Add(-time.Hour)})
			require.NoError(t, err)
			newer, err := r.evals.CreateTemplate(ctx, evaluation.Template{Title: "Range", Criteria: []evaluation.Criterion{{Key: "aim", Label: "Aim", MaxScore: 10}}, CreatedAt: now})
			require.NoError(t, err)

			list, err := r.evals.ListTemplates(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, newer.ID, list[0].ID)
			assert.Equal(t, older.Criteria, list[1].Criteria)

			_, err = r.evals.GetTemplate(ctx, "nope")
			assert.Equal(t, evaluation.ErrTemplateNotFound, err)

			ev, err := r.evals.CreateEvaluation(ctx, evaluation.Evaluation{
				TemplateID: newer.ID, StudentID: student.ID, EvaluatorID: teacher.ID,
				Scores: map[string]int{"aim": 7}, Total: 7, MaxTotal: 10, CreatedAt: now,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, ev.ID)
		})
	}
}

func TestNewsRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			for i, title := range []string{"old", "new", "scheduled"} {
				_, err := r.news.Create(ctx, news.Item{Title: title, Body: "b", PublishedAt: now.Add(time.Duration(i-1) * time.Hour)})
				require.NoError(t, err)
			}

			items, err := r.news.List(ctx, now, 0)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "new", items[0].Title)
			assert.Equal(t, "old", items[1].Title)

			items, err = r.news.List(ctx, now, 1)
			require.NoError(t, err)
			assert.Len(t, items, 1)
		})
	}
}
