// Package logadapter connects versioned parse events to structured loggers.
// Clean loads are logged at debug, fallbacks at warn and invalid defaults at
// error.
package logadapter

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	versioned "github.com/goliatone/go-versioned"
)

const (
	msgLoaded         = "versioned: loaded"
	msgMigrated       = "versioned: migrated"
	msgFallback       = "versioned: fell back to default"
	msgInvalidDefault = "versioned: default does not satisfy its schema"
)

func classify(event versioned.ParseEvent) (string, zapcore.Level) {
	switch {
	case event.Reason == versioned.ReasonInvalidDefault:
		return msgInvalidDefault, zapcore.ErrorLevel
	case event.Fallback:
		return msgFallback, zapcore.WarnLevel
	case len(event.Applied) > 0:
		return msgMigrated, zapcore.DebugLevel
	default:
		return msgLoaded, zapcore.DebugLevel
	}
}

// Zap returns a versioned.Logger writing to logger.
func Zap(logger *zap.Logger) versioned.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return versioned.LoggerFunc(func(event versioned.ParseEvent) {
		msg, level := classify(event)
		if ce := logger.Check(level, msg); ce != nil {
			ce.Write(zapFields(event)...)
		}
	})
}

func zapFields(event versioned.ParseEvent) []zap.Field {
	fields := []zap.Field{
		zap.Int("version", event.Version),
		zap.Int("source_version", event.SourceVersion),
		zap.Duration("duration", event.Duration),
	}
	if event.Model != "" {
		fields = append(fields, zap.String("model", event.Model))
	}
	if len(event.Applied) > 0 {
		fields = append(fields, zap.Ints("applied", event.Applied))
	}
	if event.Reason != versioned.ReasonNone {
		fields = append(fields, zap.String("reason", string(event.Reason)))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	return fields
}

// Logrus returns a versioned.Logger writing to logger.
func Logrus(logger logrus.FieldLogger) versioned.Logger {
	if logger == nil {
		return versioned.LoggerFunc(nil)
	}
	return versioned.LoggerFunc(func(event versioned.ParseEvent) {
		msg, level := classify(event)
		entry := logger.WithFields(logrusFields(event))
		if event.Err != nil {
			entry = entry.WithError(event.Err)
		}
		switch level {
		case zapcore.ErrorLevel:
			entry.Error(msg)
		case zapcore.WarnLevel:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	})
}

func logrusFields(event versioned.ParseEvent) logrus.Fields {
	fields := logrus.Fields{
		"version":        event.Version,
		"source_version": event.SourceVersion,
		"duration":       event.Duration,
	}
	if event.Model != "" {
		fields["model"] = event.Model
	}
	if len(event.Applied) > 0 {
		fields["applied"] = event.Applied
	}
	if event.Reason != versioned.ReasonNone {
		fields["reason"] = string(event.Reason)
	}
	return fields
}
