package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
)

// RollbarLogger writes structured logs with zap and forwards them to Rollbar when a token is configured.
type RollbarLogger struct {
	zl      *zap.Logger
	enabled bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	l := &RollbarLogger{zl: newZap(conf.Env, conf.LogLevel, conf.AppName, conf.Build)}
	l.Enable(conf.RollbarToken != "" && !conf.TestMode)
	return l
}

// NewNopLogger discards everything. Used by tests and the admin CLI.
func NewNopLogger() *RollbarLogger {
	return &RollbarLogger{zl: zap.NewNop()}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.enabled = enabled
	rollbar.SetEnabled(enabled)
}

// Sync flushes the buffered logs and waits for the pending Rollbar items.
func (l *RollbarLogger) Sync() {
	_ = l.zl.Sync()
	if l.enabled {
		rollbar.Wait()
	}
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l *RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []zap.Field) {
	var usrSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	fields := make([]zap.Field, 0, len(args))

	for i, arg := range args {
		switch a := arg.(type) {
		case user.User:
			// only set one User
			if !usrSet {
				if l.enabled {
					rollbar.SetPerson(a.ID, a.Username, "")
				}
				fields = append(fields, zap.String("user", a.Username))
				usrSet = true
			}
		case error:
			rbArgs = append(rbArgs, a)
			fields = append(fields, zap.Error(a))
		case map[string]interface{}:
			rbArgs = append(rbArgs, a)
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			rbArgs = append(rbArgs, a)
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
	}
	if !usrSet && l.enabled {
		rollbar.ClearPerson()
	}
	return rbArgs, fields
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	if l.enabled {
		rollbar.Debug(rbArgs...)
	}
	l.zl.Debug(msg, fields...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	if l.enabled {
		rollbar.Info(rbArgs...)
	}
	l.zl.Info(msg, fields...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	if l.enabled {
		rollbar.Warning(rbArgs...)
	}
	l.zl.Warn(msg, fields...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	if l.enabled {
		rollbar.Error(rbArgs...)
	}
	l.zl.Error(msg, fields...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	if l.enabled {
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	l.zl.Fatal(msg, fields...)
}
