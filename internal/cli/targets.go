package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
	"github.com/goliatone/go-versioned/pkg/store"
	"github.com/goliatone/go-versioned/trackers/dryfire"
	"github.com/goliatone/go-versioned/trackers/workout"
)

// Env is what a command operates on.
type Env struct {
	Store     store.Store
	Namespace string
	Emitter   *activity.Emitter
}

// Report is the printable outcome of reading a key.
type Report struct {
	Model string          `json:"model" yaml:"model"`
	Key   string          `json:"key" yaml:"key"`
	Found bool            `json:"found" yaml:"found"`
	Trace versioned.Trace `json:"trace" yaml:"trace"`
	Value any             `json:"value" yaml:"value"`
}

// Target is a model the CLI knows, together with the key it is stored under.
type Target interface {
	Name() string
	Key() string
	Version() int
	Describe() []versioned.VersionDescriptor
	Inspect(ctx context.Context, env Env) (Report, error)
	Export(ctx context.Context, env Env) (string, error)
	Import(ctx context.Context, env Env, serialized string) (Report, error)
	Reset(ctx context.Context, env Env) error
}

type modelTarget[T any] struct {
	name  string
	key   string
	model *versioned.Model[T]
}

// NewTarget exposes model, stored under key, to the CLI.
func NewTarget[T any](name, key string, model *versioned.Model[T]) Target {
	return modelTarget[T]{name: name, key: key, model: model}
}

func (t modelTarget[T]) Name() string { return t.name }

func (t modelTarget[T]) Key() string { return t.key }

func (t modelTarget[T]) Version() int { return t.model.Version() }

func (t modelTarget[T]) Describe() []versioned.VersionDescriptor {
	return t.model.Describe()
}

func (t modelTarget[T]) bind(env Env) (*store.Binding[T], error) {
	key, err := store.Ref{Namespace: env.Namespace, Key: t.key}.Identifier()
	if err != nil {
		return nil, err
	}
	return store.Bind(env.Store, t.model, key, store.WithEmitter(env.Emitter))
}

func (t modelTarget[T]) Inspect(ctx context.Context, env Env) (Report, error) {
	binding, err := t.bind(env)
	if err != nil {
		return Report{}, err
	}
	snapshot, err := binding.Inspect(ctx)
	if err != nil {
		return Report{}, err
	}
	return t.report(binding.Key(), snapshot.Found, snapshot.Trace, snapshot.Value)
}

func (t modelTarget[T]) Export(ctx context.Context, env Env) (string, error) {
	binding, err := t.bind(env)
	if err != nil {
		return "", err
	}
	return binding.Export(ctx)
}

func (t modelTarget[T]) Import(ctx context.Context, env Env, serialized string) (Report, error) {
	binding, err := t.bind(env)
	if err != nil {
		return Report{}, err
	}
	value, trace, err := binding.Import(ctx, serialized)
	if err != nil {
		return Report{}, err
	}
	return t.report(binding.Key(), true, trace, value)
}

func (t modelTarget[T]) Reset(ctx context.Context, env Env) error {
	binding, err := t.bind(env)
	if err != nil {
		return err
	}
	return binding.Clear(ctx)
}

func (t modelTarget[T]) report(key string, found bool, trace versioned.Trace, value T) (Report, error) {
	generic, err := genericValue(value)
	if err != nil {
		return Report{}, fmt.Errorf("cli: %s: %w", t.name, err)
	}
	return Report{Model: t.name, Key: key, Found: found, Trace: trace, Value: generic}, nil
}

// genericValue converts value to its JSON form so that YAML output uses the
// JSON field names.
func genericValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Catalog lists the models of the bundled trackers. opts apply to every
// model chain.
func Catalog(opts ...versioned.Option) []Target {
	w := workout.NewModels(opts...)
	d := dryfire.NewModels(opts...)
	return []Target{
		NewTarget("workout-config", workout.ConfigKey, w.Config),
		NewTarget("workout-entries", workout.WorkoutsKey, w.Workouts),
		NewTarget("workout-legacy", workout.LegacyKey, w.Legacy),
		NewTarget("dry-fire", dryfire.StorageKey, d.Data),
	}
}

// Lookup finds a target by name.
func Lookup(targets []Target, name string) (Target, error) {
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		if target.Name() == name {
			return target, nil
		}
		names = append(names, target.Name())
	}
	sort.Strings(names)
	return nil, fmt.Errorf("cli: unknown model %q (known: %s)", name, strings.Join(names, ", "))
}
