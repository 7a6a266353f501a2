package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

// RollbarLogger prints to a std logger and forwards to Rollbar when a token is configured.
// Debug lines are printed in debug mode only.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush waits for queued Rollbar items to be sent.
func (l RollbarLogger) Flush() {
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]interface{}, user.User or *user.User.
// remote is false when an argument is a validation error: those are reported to the user only.
func (l RollbarLogger) prepare(msg string, args []interface{}) (newArgs []interface{}, remote bool) {
	var usrSet bool
	remote = true
	newArgs = make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		var usr *user.User
		switch a := arg.(type) {
		case user.User:
			usr = &a
		case *user.User:
			usr = a
		case error:
			if core.IsValidation(a) {
				remote = false
			}
		}
		if usr != nil {
			// set logged in User
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
				usrSet = true
			}
			continue
		}
		if arg != nil {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs, remote
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + " " + msg)
	for _, arg := range args {
		switch arg.(type) {
		case user.User, *user.User:
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	if rArgs, remote := l.prepare(msg, args); remote {
		rollbar.Debug(rArgs...)
	}
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	if rArgs, remote := l.prepare(msg, args); remote {
		rollbar.Info(rArgs...)
	}
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	if rArgs, remote := l.prepare(msg, args); remote {
		rollbar.Warning(rArgs...)
	}
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	if rArgs, remote := l.prepare(msg, args); remote {
		rollbar.Error(rArgs...)
	}
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	if rArgs, remote := l.prepare(msg, args); remote {
		rollbar.Critical(rArgs...)
	}
	l.print("FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
