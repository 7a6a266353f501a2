// Command portal is the terminal client of the training portal.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/session"
	logsvc "github.com/trainingcmd/portal/services/logger"
	"github.com/trainingcmd/portal/services/portalapi"
	filestore "github.com/trainingcmd/portal/storage/session/file"
	inmemstore "github.com/trainingcmd/portal/storage/session/inmem"
	redisstore "github.com/trainingcmd/portal/storage/session/redis"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if err := run(ctx, conf, logger, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", core.ErrorMessage(err))
			logger.Debug("command failed", err)
		}
		code = 1
	}
	stop()
	logger.Flush()
	os.Exit(code)
}

func run(ctx context.Context, conf *core.Config, logger core.Logger, args []string) error {
	store, closeStore, err := openStore(ctx, conf.Session)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := events.NewBus()
	sess, err := session.New(ctx, store, bus, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	api, err := portalapi.New(conf.API.BaseURL, sess, &portalapi.Options{
		Timeout:     conf.API.Timeout,
		RefreshSkew: conf.API.RefreshSkew,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	validate, _ := core.NewValidator()
	cli := commandLine{
		conf:     conf,
		logger:   logger,
		validate: validate,
		bus:      bus,
		sess:     sess,
		api:      api,
		out:      os.Stdout,
	}
	return cli.run(ctx, args)
}

// openStore returns the session store selected by conf.Backend and a func releasing it.
func openStore(ctx context.Context, conf core.SessionConfig) (session.Store, func(), error) {
	switch conf.Backend {
	case core.SessionBackendMemory:
		return inmemstore.New(), func() {}, nil
	case core.SessionBackendRedis:
		store, err := redisstore.Open(ctx, conf.RedisURL, conf.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return store, closer(store), nil
	case core.SessionBackendFile, "":
		return filestore.New(conf.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q (want %s, %s or %s)",
			conf.Backend, core.SessionBackendFile, core.SessionBackendMemory, core.SessionBackendRedis)
	}
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
