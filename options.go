package versioned

// Option configures a model chain. Options are given to New and apply to
// every handle derived from it.
type Option func(*config)

type config struct {
	name          string
	logger        Logger
	recoverPanics bool
}

func applyOptions(opts []Option) config {
	cfg := config{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithName labels the model in logs, traces and errors.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithLogger attaches a parse logger.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithRecoverMigrationPanics folds panics raised by migration functions into
// the fallback path. By default such panics propagate, since they point at a
// defect in deployed code rather than at bad stored data.
func WithRecoverMigrationPanics() Option {
	return func(cfg *config) {
		cfg.recoverPanics = true
	}
}
