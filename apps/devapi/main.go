// Command portal-devapi is a local stand-in for the portal API.
//
// Usage:
//
//	portal-devapi                  serve the API (in memory, or PostgreSQL when DATABASE_URL is set)
//	portal-devapi migrate COMMAND  run a goose migration command (up, down, status, redo, version...)
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trainingcmd/portal/apps/devapi/echo"
	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
	emailsvc "github.com/trainingcmd/portal/services/email"
	logsvc "github.com/trainingcmd/portal/services/logger"
	"github.com/trainingcmd/portal/storage/database"
	inmemdb "github.com/trainingcmd/portal/storage/database/inmem"
	pgrepos "github.com/trainingcmd/portal/storage/database/postgres"
)

type repositories struct {
	users       user.Repository
	schedules   schedule.Repository
	evaluations evaluation.Repository
	news        news.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DEVAPI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Flush()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrate(conf, os.Args[2:]); err != nil {
			logger.Fatal(fmt.Sprintf("migrate: %v", err), err)
		}
		return
	}

	validate, translator := core.NewValidator()

	repos, db, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	if db != nil {
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
	}

	usrSvc := user.NewService(repos.users, validate)
	resetter := user.NewPasswordResetter(repos.users, validate, emailsvc.NewService(conf, logger), conf.Server.SecretKey, conf.Server.PasswordResetTimeout)
	scheduleSvc := schedule.NewService(repos.schedules, repos.users, validate)
	evaluationSvc := evaluation.NewService(repos.evaluations, repos.users)
	newsSvc := news.NewService(repos.news)

	if db == nil {
		if err = seed(context.Background(), usrSvc, scheduleSvc, evaluationSvc, newsSvc); err != nil {
			logger.Fatal(fmt.Sprintf("seeding demo data: %v", err), err)
		}
		logger.Info("in-memory storage seeded with demo accounts admin, suksan (teacher) and somchai (student); password " + demoPassword)
	}

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		Resetter:      resetter,
		ScheduleSvc:   scheduleSvc,
		EvaluationSvc: evaluationSvc,
		NewsSvc:       newsSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		if err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage returns PostgreSQL repositories when a database URL is configured, in-memory ones otherwise.
func setUpStorage(conf *core.Config) (repositories, *sqlx.DB, error) {
	if conf.Database.URL == "" {
		db := inmemdb.Open()
		return repositories{
			users:       inmemdb.NewUserRepository(db),
			schedules:   inmemdb.NewScheduleRepository(db),
			evaluations: inmemdb.NewEvaluationRepository(db),
			news:        inmemdb.NewNewsRepository(db),
		}, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.Open(ctx, conf.Database.URL)
	if err != nil {
		return repositories{}, nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return repositories{}, nil, err
	}
	return repositories{
		users:       pgrepos.NewUserRepository(db),
		schedules:   pgrepos.NewScheduleRepository(db),
		evaluations: pgrepos.NewEvaluationRepository(db),
		news:        pgrepos.NewNewsRepository(db),
	}, db, nil
}

func migrate(conf *core.Config, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage:")
		fmt.Println("  migrate COMMAND [ARGS...] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
		return nil
	}
	if conf.Database.URL == "" {
		return fmt.Errorf("%s_DATABASE_URL is not set", conf.Env)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.Open(ctx, conf.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.RunMigration(db.DB, args[0], args[1:]...)
}
