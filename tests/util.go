// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trainingcmd/portal/core/user"
	"github.com/trainingcmd/portal/storage/database"
)

// PrepareDB opens and migrates the database at TEST_DATABASE_URL, skipping the test when unset.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, url)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	q := `TRUNCATE student_evaluation, evaluation_template, teaching_schedule, news_item, account CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

// CreateAccount stores an active or inactive account with pwd as its password.
func CreateAccount(
	t *testing.T,
	repo user.Repository,
	uname, pwd, role, firstName, lastName string,
	isActive bool,
	createdAt ...time.Time,
) user.Account {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := user.Account{
		User: user.User{
			Username:        uname,
			Role:            role,
			FirstName:       firstName,
			LastName:        lastName,
			ChronicDiseases: user.List{},
			FoodAllergies:   user.List{},
			DrugAllergies:   user.List{},
		},
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = "p4ssw0rd!x"
	}
	if err := acc.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}
