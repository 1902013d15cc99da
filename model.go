package versioned

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-versioned/internal/layering"
)

// Schema validates a candidate and returns it normalized into T. Candidates
// may be raw JSON (json.RawMessage or []byte), a T, a *T, or any value with a
// JSON form.
type Schema[T any] interface {
	Validate(candidate any) (T, error)
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc[T any] func(candidate any) (T, error)

// Validate implements Schema.
func (f SchemaFunc[T]) Validate(candidate any) (T, error) {
	return f(candidate)
}

// MigrationFunc maps a value of the previous generation into the next one.
// Returning an error marks the stored data as unusable.
type MigrationFunc[P, N any] func(P) (N, error)

type step struct {
	validate     func(any) (any, error)
	defaultValue any
	migrate      func(any) (any, error)
}

// registry is the append-only step sequence shared by every handle of one
// chain. Steps are only appended during setup.
type registry struct {
	cfg   config
	steps []step
}

// Model is a handle bound to one generation of a stored data shape. Handles
// created from the same chain share its steps; the version index is the only
// per-handle state.
type Model[T any] struct {
	reg          *registry
	version      int
	schema       Schema[T]
	defaultValue T
}

// New creates a chain with a single generation, version 0.
func New[T any](schema Schema[T], defaultValue T, opts ...Option) *Model[T] {
	if schema == nil {
		panic("versioned: New called with nil schema")
	}
	reg := &registry{cfg: applyOptions(opts)}
	return appendStep(reg, schema, defaultValue, nil)
}

// Migrate appends a generation to the chain of prev and returns a handle for
// it. prev keeps working and keeps reporting its own version. fn receives
// values of the generation that was latest when Migrate was called; extending
// a chain from an older handle is allowed but the mismatch surfaces when
// parsing, as a failed migration.
func Migrate[P, N any](prev *Model[P], schema Schema[N], defaultValue N, fn MigrationFunc[P, N]) *Model[N] {
	if prev == nil {
		panic("versioned: Migrate called with nil model")
	}
	if schema == nil {
		panic("versioned: Migrate called with nil schema")
	}
	var migrate func(any) (any, error)
	if fn != nil {
		migrate = func(value any) (any, error) {
			typed, ok := value.(P)
			if !ok {
				return nil, fmt.Errorf("%w: got %T, want %T", ErrMigrationType, value, *new(P))
			}
			return fn(typed)
		}
	}
	return appendStep(prev.reg, schema, defaultValue, migrate)
}

func appendStep[T any](reg *registry, schema Schema[T], defaultValue T, migrate func(any) (any, error)) *Model[T] {
	reg.steps = append(reg.steps, step{
		validate: func(candidate any) (any, error) {
			return schema.Validate(candidate)
		},
		defaultValue: defaultValue,
		migrate:      migrate,
	})
	return &Model[T]{
		reg:          reg,
		version:      len(reg.steps) - 1,
		schema:       schema,
		defaultValue: layering.Clone(defaultValue),
	}
}

// Version returns the handle's own version index.
func (m *Model[T]) Version() int {
	return m.version
}

// Len returns the number of generations registered on the chain, including
// ones appended after this handle was created.
func (m *Model[T]) Len() int {
	return len(m.reg.steps)
}

// Name returns the label given with WithName.
func (m *Model[T]) Name() string {
	return m.reg.cfg.name
}

// Default returns a copy of the handle's default value.
func (m *Model[T]) Default() T {
	return layering.Clone(m.defaultValue)
}

// Parse turns a stored string into a value of the handle's generation. It
// never fails: data that cannot be trusted is replaced by the default.
func (m *Model[T]) Parse(serialized string) T {
	value, _ := m.ParseWithTrace(serialized)
	return value
}

// ParseWithTrace behaves like Parse and also reports what happened.
func (m *Model[T]) ParseWithTrace(serialized string) (T, Trace) {
	started := time.Now()
	trace := Trace{
		Model:         m.reg.cfg.name,
		Version:       m.version,
		SourceVersion: -1,
	}

	value, err := m.load(serialized, &trace)
	if err != nil {
		var data *recoverable
		if !errors.As(err, &data) {
			data = dataError(ReasonMigrationFailed, trace.SourceVersion, err)
		}
		trace.Fallback = true
		trace.Reason = data.reason
		trace.Error = data.Error()
		value = m.fallback(&trace)
	}

	event := ParseEvent{
		Model:         trace.Model,
		Version:       trace.Version,
		SourceVersion: trace.SourceVersion,
		Applied:       append([]int(nil), trace.Applied...),
		Fallback:      trace.Fallback,
		Reason:        trace.Reason,
		Duration:      time.Since(started),
		Err:           err,
	}
	m.reg.cfg.logger.LogParse(event)
	return value, trace
}

func (m *Model[T]) load(serialized string, trace *Trace) (T, error) {
	var zero T
	raw := json.RawMessage(serialized)
	if !json.Valid(raw) {
		return zero, dataError(ReasonMalformedJSON, -1, errors.New("input is not valid JSON"))
	}

	source, payload := splitEnvelope(raw)
	trace.SourceVersion = source
	if source < 0 || source > m.version || source >= len(m.reg.steps) {
		return zero, dataError(ReasonUnknownVersion, source,
			fmt.Errorf("%w: %d (handle version %d)", ErrUnknownVersion, source, m.version))
	}

	current, err := m.reg.steps[source].validate(payload)
	if err != nil {
		return zero, dataError(ReasonSchemaMismatch, source, err)
	}

	for idx := source + 1; idx <= m.version; idx++ {
		next := m.reg.steps[idx]
		if next.migrate == nil {
			return zero, dataError(ReasonMissingMigration, idx, fmt.Errorf("%w: v%d", ErrMissingMigration, idx))
		}
		migrated, err := m.runMigration(next.migrate, current, idx)
		if err != nil {
			return zero, err
		}
		current, err = next.validate(migrated)
		if err != nil {
			return zero, dataError(ReasonSchemaMismatch, idx, err)
		}
		trace.Applied = append(trace.Applied, idx)
	}

	typed, ok := current.(T)
	if !ok {
		return zero, dataError(ReasonMigrationFailed, m.version,
			fmt.Errorf("%w: got %T, want %T", ErrMigrationType, current, zero))
	}
	return typed, nil
}

func (m *Model[T]) runMigration(migrate func(any) (any, error), value any, version int) (out any, err error) {
	if m.reg.cfg.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				out = nil
				err = dataError(ReasonMigrationPanicked, version, fmt.Errorf("panic: %v", r))
			}
		}()
	}
	out, err = migrate(value)
	if err != nil {
		return nil, dataError(ReasonMigrationFailed, version, err)
	}
	return out, nil
}

func (m *Model[T]) fallback(trace *Trace) T {
	value, err := m.schema.Validate(m.Default())
	if err != nil {
		m.reg.cfg.logger.LogParse(ParseEvent{
			Model:    m.reg.cfg.name,
			Version:  m.version,
			Fallback: true,
			Reason:   ReasonInvalidDefault,
			Err:      &ValidationError{Model: m.reg.cfg.name, Version: m.version, Err: err},
		})
		trace.DefaultInvalid = true
		return m.Default()
	}
	return value
}

// Serialize validates value against the handle's schema and returns the
// envelope stamped with the handle's own version.
func (m *Model[T]) Serialize(value T) (string, error) {
	normalized, err := m.schema.Validate(value)
	if err != nil {
		return "", &ValidationError{Model: m.reg.cfg.name, Version: m.version, Err: err}
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("versioned: encode %s v%d: %w", describeModel(m.reg.cfg.name), m.version, err)
	}
	out, err := json.Marshal(Envelope{Version: m.version, Data: data})
	if err != nil {
		return "", fmt.Errorf("versioned: encode envelope: %w", err)
	}
	return string(out), nil
}

// Verify checks the chain up to the handle's version: every default must
// satisfy its own schema and every generation after the first must carry a
// migration. It is meant for setup code and tests.
func (m *Model[T]) Verify() error {
	var errs []error
	for idx := 0; idx <= m.version; idx++ {
		current := m.reg.steps[idx]
		if idx > 0 && current.migrate == nil {
			errs = append(errs, fmt.Errorf("%w: v%d", ErrMissingMigration, idx))
		}
		if _, err := current.validate(layering.Clone(current.defaultValue)); err != nil {
			errs = append(errs, &ValidationError{Model: m.reg.cfg.name, Version: idx, Err: err})
		}
	}
	return errors.Join(errs...)
}
