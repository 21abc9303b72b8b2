package logsvc

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newZap builds a colored console logger in dev and a JSON logger everywhere else.
func newZap(env, level, appName, build string) *zap.Logger {
	var zcfg zap.Config
	if env == "prod" || env == "production" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	// skip the core.Logger wrapper
	l, err := zcfg.Build(zap.AddCaller(), zap.AddCallerSkip(2))
	if err != nil {
		l, _ = zap.NewProduction()
	}
	l = l.With(zap.String("service", appName))
	if build != "" {
		l = l.With(zap.String("version", build))
	}
	return l
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
