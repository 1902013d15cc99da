package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goliatone/go-versioned/pkg/activity"
)

// NewLogger builds the CLI logger. With a log file configured, JSON lines
// are written through a rotating lumberjack writer; otherwise a console
// encoder writes to stderr. The returned cleanup flushes the logger and
// closes the log file; it is safe to call more than once.
func NewLogger(cfg LogConfig, stderr io.Writer) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("cli: log level: %w", err)
		}
		level = parsed
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), level)
		logger := zap.New(core)
		var once sync.Once
		var closeErr error
		cleanup := func() error {
			once.Do(func() {
				_ = logger.Sync()
				closeErr = writer.Close()
			})
			return closeErr
		}
		return logger, cleanup, nil
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(stderr)), level)
	logger := zap.New(core)
	cleanup := func() error {
		// Syncing a terminal fails on some platforms.
		_ = logger.Sync()
		return nil
	}
	return logger, cleanup, nil
}

// activityLogger logs storage activity at info level.
func activityLogger(logger *zap.Logger) activity.HookFunc {
	return func(_ context.Context, event activity.Event) error {
		fields := []zap.Field{
			zap.String("verb", event.Verb),
			zap.String("key", event.ObjectID),
		}
		for _, name := range []string{"namespace", "model", "version", "source_version", "reason"} {
			if value, ok := event.Metadata[name]; ok {
				fields = append(fields, zap.Any(name, value))
			}
		}
		logger.Info("storage activity", fields...)
		return nil
	}
}
