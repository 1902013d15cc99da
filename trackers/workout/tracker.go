package workout

import (
	"context"
	"fmt"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
	"github.com/goliatone/go-versioned/pkg/store"
)

// Option configures a Tracker.
type Option func(*options)

type options struct {
	namespace   string
	emitter     *activity.Emitter
	modelOpts   []versioned.Option
	skipMigrate bool
}

// WithNamespace keeps the tracker keys under a namespace, for example one
// per user.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithEmitter reports storage activity.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(o *options) {
		o.emitter = emitter
	}
}

// WithModelOptions passes options, such as a logger, to the models.
func WithModelOptions(opts ...versioned.Option) Option {
	return func(o *options) {
		o.modelOpts = append(o.modelOpts, opts...)
	}
}

// WithoutLegacyAdoption leaves the legacy combined key alone on open.
func WithoutLegacyAdoption() Option {
	return func(o *options) {
		o.skipMigrate = true
	}
}

// Tracker reads and writes the workout log.
type Tracker struct {
	models   Models
	config   *store.Binding[Config]
	workouts *store.Binding[Entries]
}

// Open binds the tracker to s. Unless disabled, data under the legacy
// combined key is split into the config and workouts keys first.
func Open(ctx context.Context, s store.Store, opts ...Option) (*Tracker, error) {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	keys := map[string]string{}
	for _, key := range []string{ConfigKey, WorkoutsKey, LegacyKey} {
		id, err := store.Ref{Namespace: o.namespace, Key: key}.Identifier()
		if err != nil {
			return nil, err
		}
		keys[key] = id
	}

	models := NewModels(o.modelOpts...)
	config, err := store.Bind(s, models.Config, keys[ConfigKey], store.WithEmitter(o.emitter))
	if err != nil {
		return nil, err
	}
	workouts, err := store.Bind(s, models.Workouts, keys[WorkoutsKey], store.WithEmitter(o.emitter))
	if err != nil {
		return nil, err
	}
	t := &Tracker{models: models, config: config, workouts: workouts}

	if !o.skipMigrate {
		legacy := store.Legacy[Data]{
			Store:   s,
			Model:   models.Legacy,
			Key:     keys[LegacyKey],
			Targets: []string{keys[ConfigKey], keys[WorkoutsKey]},
			Emitter: o.emitter,
		}
		if _, err := legacy.Adopt(ctx, t.adoptLegacy); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tracker) adoptLegacy(ctx context.Context, data Data) error {
	if err := t.config.Save(ctx, data.Config); err != nil {
		return err
	}
	return t.workouts.Save(ctx, data.Workouts)
}

// Models returns the model handles the tracker uses.
func (t *Tracker) Models() Models {
	return t.models
}

// Data loads the configuration and the workouts.
func (t *Tracker) Data(ctx context.Context) (Data, error) {
	config, err := t.config.Load(ctx)
	if err != nil {
		return Data{}, err
	}
	workouts, err := t.workouts.Load(ctx)
	if err != nil {
		return Data{}, err
	}
	return Data{Config: config, Workouts: workouts}, nil
}

// Workout returns the workout logged for date.
func (t *Tracker) Workout(ctx context.Context, date string) (Entry, bool, error) {
	workouts, err := t.workouts.Load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := workouts[date]
	return entry, ok, nil
}

// EnsureWorkout returns the workout for date, creating and saving it when
// there is none yet.
func (t *Tracker) EnsureWorkout(ctx context.Context, date string) (Entry, error) {
	return t.UpsertWorkout(ctx, date, func(entry Entry) (Entry, error) {
		return entry, nil
	})
}

// SetWorkout stores entry for date, replacing any previous workout.
func (t *Tracker) SetWorkout(ctx context.Context, date string, entry Entry) error {
	_, err := t.workouts.Update(ctx, func(current Entries) (Entries, error) {
		next := copyEntries(current)
		next[date] = entry
		return next, nil
	})
	return err
}

// UpsertWorkout applies build to the workout for date, starting from a new
// entry when none exists, and saves the result.
func (t *Tracker) UpsertWorkout(ctx context.Context, date string, build func(Entry) (Entry, error)) (Entry, error) {
	config, err := t.config.Load(ctx)
	if err != nil {
		return Entry{}, err
	}
	var result Entry
	_, err = t.workouts.Update(ctx, func(current Entries) (Entries, error) {
		entry, ok := current[date]
		if !ok {
			created, err := CreateEntry(Data{Config: config, Workouts: current}, date)
			if err != nil {
				return nil, err
			}
			entry = created
		}
		built, err := build(entry)
		if err != nil {
			return nil, err
		}
		result = built
		next := copyEntries(current)
		next[date] = built
		return next, nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("workout: upsert %s: %w", date, err)
	}
	return result, nil
}

// DeleteWorkout removes the workout for date.
func (t *Tracker) DeleteWorkout(ctx context.Context, date string) error {
	_, err := t.workouts.Update(ctx, func(current Entries) (Entries, error) {
		next := copyEntries(current)
		delete(next, date)
		return next, nil
	})
	return err
}

// UpdateConfig saves cfg and realigns every workout with its template.
func (t *Tracker) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := t.config.Save(ctx, cfg); err != nil {
		return err
	}
	_, err := t.workouts.Update(ctx, func(current Entries) (Entries, error) {
		return Reconcile(current, cfg), nil
	})
	return err
}

// Export returns the stored string of both keys.
func (t *Tracker) Export(ctx context.Context) (Serialized, error) {
	config, err := t.config.Export(ctx)
	if err != nil {
		return Serialized{}, err
	}
	workouts, err := t.workouts.Export(ctx)
	if err != nil {
		return Serialized{}, err
	}
	return Serialized{Config: config, Workouts: workouts}, nil
}

// Import parses both strings, realigns the workouts with the imported
// configuration and saves them. Unusable input is replaced by defaults, as
// on load.
func (t *Tracker) Import(ctx context.Context, serialized Serialized) (Data, error) {
	config := t.models.Config.Parse(serialized.Config)
	workouts := Reconcile(t.models.Workouts.Parse(serialized.Workouts), config)
	if err := t.config.Save(ctx, config); err != nil {
		return Data{}, err
	}
	if err := t.workouts.Save(ctx, workouts); err != nil {
		return Data{}, err
	}
	return Data{Config: config, Workouts: workouts}, nil
}

func copyEntries(entries Entries) Entries {
	out := make(Entries, len(entries)+1)
	for date, entry := range entries {
		out[date] = entry
	}
	return out
}
