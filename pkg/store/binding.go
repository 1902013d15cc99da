package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
)

// Mutator derives the next value from the current one.
type Mutator[T any] func(current T) (T, error)

// Snapshot is the outcome of reading a bound key.
type Snapshot[T any] struct {
	Value T
	// Raw is the stored string, empty when the key is absent.
	Raw   string
	Found bool
	Trace versioned.Trace
}

// BindingOption configures a Binding.
type BindingOption func(*bindingConfig)

type bindingConfig struct {
	emitter *activity.Emitter
}

// WithEmitter reports fallbacks, migrations and writes as activity events.
func WithEmitter(emitter *activity.Emitter) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.emitter = emitter
	}
}

// Binding ties a model handle to one key of a store. An absent key reads as
// the model default; anything stored goes through Parse and so never fails to
// decode. Writes go through Serialize.
type Binding[T any] struct {
	store   Store
	model   *versioned.Model[T]
	key     string
	emitter *activity.Emitter
}

// Bind creates a Binding for key.
func Bind[T any](store Store, model *versioned.Model[T], key string, opts ...BindingOption) (*Binding[T], error) {
	if store == nil {
		return nil, errors.New("store: store is required")
	}
	if model == nil {
		return nil, errors.New("store: model is required")
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	cfg := bindingConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Binding[T]{store: store, model: model, key: key, emitter: cfg.emitter}, nil
}

// Key returns the bound key.
func (b *Binding[T]) Key() string {
	return b.key
}

// Model returns the bound model handle.
func (b *Binding[T]) Model() *versioned.Model[T] {
	return b.model
}

// Load returns the current value. Only store failures are reported as
// errors; unusable stored data yields the model default.
func (b *Binding[T]) Load(ctx context.Context) (T, error) {
	snapshot, err := b.Inspect(ctx)
	return snapshot.Value, err
}

// Inspect reads the key and reports how the value was obtained.
func (b *Binding[T]) Inspect(ctx context.Context) (Snapshot[T], error) {
	raw, ok, err := b.store.Get(ctx, b.key)
	if err != nil {
		return Snapshot[T]{Value: b.model.Default()}, fmt.Errorf("store: load %q: %w", b.key, err)
	}
	if !ok {
		return Snapshot[T]{
			Value: b.model.Default(),
			Trace: versioned.Trace{Model: b.model.Name(), Version: b.model.Version(), SourceVersion: -1},
		}, nil
	}
	value, trace := b.model.ParseWithTrace(raw)
	b.reportParse(ctx, trace)
	return Snapshot[T]{Value: value, Raw: raw, Found: true, Trace: trace}, nil
}

// Save serializes value and writes it. A value the model rejects is never
// written.
func (b *Binding[T]) Save(ctx context.Context, value T) error {
	if err := b.write(ctx, value); err != nil {
		return err
	}
	b.emit(ctx, activity.BuildSavedEvent(b.eventInput()))
	return nil
}

// Update loads the current value, applies fn and saves the result.
func (b *Binding[T]) Update(ctx context.Context, fn Mutator[T]) (T, error) {
	if fn == nil {
		var zero T
		return zero, errors.New("store: mutator is required")
	}
	current, err := b.Load(ctx)
	if err != nil {
		return current, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := b.Save(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

// Export returns the stored string as is. When the key is absent the default
// is serialized, written and returned, so an export always reflects what is
// persisted.
func (b *Binding[T]) Export(ctx context.Context) (string, error) {
	raw, ok, err := b.store.Get(ctx, b.key)
	if err != nil {
		return "", fmt.Errorf("store: export %q: %w", b.key, err)
	}
	if ok {
		return raw, nil
	}
	serialized, err := b.model.Serialize(b.model.Default())
	if err != nil {
		return "", err
	}
	if err := b.store.Set(ctx, b.key, serialized); err != nil {
		return "", fmt.Errorf("store: export %q: %w", b.key, err)
	}
	return serialized, nil
}

// Import parses serialized with the model and saves the result. Like any
// parse, data that cannot be used is replaced by the default; the trace tells
// the caller whether that happened.
func (b *Binding[T]) Import(ctx context.Context, serialized string) (T, versioned.Trace, error) {
	value, trace := b.model.ParseWithTrace(serialized)
	b.reportParse(ctx, trace)
	if err := b.write(ctx, value); err != nil {
		return value, trace, err
	}
	input := b.eventInput()
	input.SourceVersion = trace.SourceVersion
	input.Reason = string(trace.Reason)
	b.emit(ctx, activity.BuildImportedEvent(input))
	return value, trace, nil
}

// Clear deletes the key; the next load returns the default.
func (b *Binding[T]) Clear(ctx context.Context) error {
	if err := b.store.Delete(ctx, b.key); err != nil {
		return fmt.Errorf("store: clear %q: %w", b.key, err)
	}
	b.emit(ctx, activity.BuildClearedEvent(b.eventInput()))
	return nil
}

func (b *Binding[T]) write(ctx context.Context, value T) error {
	serialized, err := b.model.Serialize(value)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.key, serialized); err != nil {
		return fmt.Errorf("store: save %q: %w", b.key, err)
	}
	return nil
}

func (b *Binding[T]) reportParse(ctx context.Context, trace versioned.Trace) {
	input := b.eventInput()
	input.SourceVersion = trace.SourceVersion
	input.Applied = trace.Applied
	switch {
	case trace.Fallback:
		input.Reason = string(trace.Reason)
		input.Error = trace.Error
		b.emit(ctx, activity.BuildFallbackEvent(input))
	case trace.Migrated():
		b.emit(ctx, activity.BuildMigratedEvent(input))
	}
}

func (b *Binding[T]) eventInput() activity.ModelEventInput {
	return activity.ModelEventInput{
		Key:     b.key,
		Model:   b.model.Name(),
		Version: b.model.Version(),
	}
}

// emit drops hook errors: activity reporting never fails a storage call.
func (b *Binding[T]) emit(ctx context.Context, event activity.Event) {
	_ = b.emitter.Emit(ctx, event)
}

// Legacy describes a key that used to hold data now kept under other keys.
type Legacy[L any] struct {
	Store   Store
	Model   *versioned.Model[L]
	Key     string
	Targets []string
	Emitter *activity.Emitter
}

// Adopt moves legacy data into its targets. When the legacy key is absent it
// does nothing. When any target already holds data the legacy key is only
// removed. Otherwise the legacy value is parsed, handed to apply, and the
// legacy key is removed once apply succeeds. It reports whether apply ran.
func (l Legacy[L]) Adopt(ctx context.Context, apply func(context.Context, L) error) (bool, error) {
	if l.Store == nil || l.Model == nil {
		return false, errors.New("store: legacy store and model are required")
	}
	if apply == nil {
		return false, errors.New("store: legacy apply func is required")
	}
	raw, ok, err := l.Store.Get(ctx, l.Key)
	if err != nil {
		return false, fmt.Errorf("store: read legacy %q: %w", l.Key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}

	for _, target := range l.Targets {
		_, present, err := l.Store.Get(ctx, target)
		if err != nil {
			return false, fmt.Errorf("store: read %q: %w", target, err)
		}
		if present {
			return false, l.remove(ctx)
		}
	}

	value, trace := l.Model.ParseWithTrace(raw)
	if err := apply(ctx, value); err != nil {
		return false, fmt.Errorf("store: adopt legacy %q: %w", l.Key, err)
	}
	if err := l.remove(ctx); err != nil {
		return true, err
	}
	_ = l.Emitter.Emit(ctx, activity.BuildAdoptedEvent(activity.ModelEventInput{
		Key:           l.Key,
		Model:         l.Model.Name(),
		Version:       l.Model.Version(),
		SourceVersion: trace.SourceVersion,
		Reason:        string(trace.Reason),
		Metadata:      map[string]any{"targets": append([]string{}, l.Targets...)},
	}))
	return true, nil
}

func (l Legacy[L]) remove(ctx context.Context) error {
	if err := l.Store.Delete(ctx, l.Key); err != nil {
		return fmt.Errorf("store: remove legacy %q: %w", l.Key, err)
	}
	return nil
}
