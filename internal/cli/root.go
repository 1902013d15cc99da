// Package cli implements the versioned command: it inspects, exports,
// imports, describes and resets the stored data of the bundled trackers in
// any of the supported stores.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
	"github.com/goliatone/go-versioned/pkg/logadapter"
)

const appName = "versioned"

// app carries the state set up before each command runs.
type app struct {
	v          *viper.Viper
	configPath string
	out        io.Writer
	errOut     io.Writer

	cfg         Config
	logger      *zap.Logger
	closeLogger func() error
	env         Env
	targets     []Target
	closeStore  func() error
}

// NewRootCommand builds the command tree. Output goes to out, logs to errOut
// unless a log file is configured.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Inspect and maintain versioned local data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file (default: ./versioned.yaml).")
	flags.String("store", DriverFile, "Store driver: memory, file, sqlite or redis.")
	flags.String("path", "", "Directory of the file store or database of the sqlite store.")
	flags.String("namespace", "", "Namespace the keys are stored under.")
	flags.String("log-level", "info", "Log level.")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr.")
	for key, flag := range map[string]string{
		"store.driver": "store",
		"store.path":   "path",
		"namespace":    "namespace",
		"log.level":    "log-level",
		"log.file":     "log-file",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newModelsCommand(a),
		newInspectCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newDescribeCommand(a),
		newResetCommand(a),
	)
	// Cobra skips PersistentPostRunE when RunE fails.
	for _, sub := range cmd.Commands() {
		run := sub.RunE
		if run == nil {
			continue
		}
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			if err := run(cmd, args); err != nil {
				_ = a.teardown()
				return err
			}
			return nil
		}
	}
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := LoadConfig(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, closeLogger, err := NewLogger(cfg.Log, a.errOut)
	if err != nil {
		return err
	}
	s, closeStore, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		_ = closeLogger()
		return err
	}
	logger.Debug("store opened", zap.String("driver", cfg.Store.Driver), zap.String("namespace", cfg.Namespace))

	a.cfg = cfg
	a.logger = logger
	a.closeLogger = closeLogger
	a.closeStore = closeStore
	a.targets = Catalog(versioned.WithLogger(logadapter.Zap(logger)))
	a.env = Env{
		Store:     s,
		Namespace: cfg.Namespace,
		Emitter: activity.NewEmitter(
			activity.Hooks{activityLogger(logger)},
			activity.Config{Enabled: true, Channel: appName},
		),
	}
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("cli: close store: %w", err))
		}
		a.closeStore = nil
	}
	if a.closeLogger != nil {
		if err := a.closeLogger(); err != nil {
			errs = append(errs, fmt.Errorf("cli: close log: %w", err))
		}
		a.closeLogger = nil
	}
	return errors.Join(errs...)
}

func (a *app) target(name string) (Target, error) {
	return Lookup(a.targets, name)
}
