package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-versioned/internal/hydrate"
	"github.com/goliatone/go-versioned/internal/layering"
	"github.com/goliatone/go-versioned/rules"
)

type compiledRule struct {
	name       string
	engine     string
	expression string
	program    rules.Program
}

type check[T any] struct {
	name string
	fn   func(T) error
}

// Definition validates and normalizes candidates into T. It satisfies the
// versioned.Schema[T] contract. Definitions are configured during setup and
// are safe for concurrent use afterwards.
type Definition[T any] struct {
	name         string
	decoder      *hydrate.Decoder[T]
	jsonSchema   *jsonschema.Schema
	rules        []compiledRule
	checks       []check[T]
	defaults     *T
	allowMissing bool
}

// Define builds a Definition for T. Rule expressions and the JSON Schema
// document are compiled eagerly so configuration mistakes fail here rather
// than during validation.
func Define[T any](opts ...Option) (*Definition[T], error) {
	cfg := &settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	def := &Definition[T]{
		name:         cfg.name,
		allowMissing: cfg.allowMissing,
	}

	decoderOpts := []hydrate.DecoderOption[T]{}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	for _, fn := range cfg.prepare {
		prepare := fn
		decoderOpts = append(decoderOpts, hydrate.WithPreHook[T](func(_ hydrate.Context, payload any) (any, error) {
			return prepare(payload)
		}))
	}
	if !cfg.allowMissing {
		target := reflect.TypeOf((*T)(nil)).Elem()
		decoderOpts = append(decoderOpts, hydrate.WithPreHook[T](func(_ hydrate.Context, payload any) (any, error) {
			if missing := requiredFields(target, payload, ""); len(missing) > 0 {
				return nil, def.join(missing)
			}
			return payload, nil
		}))
	}
	def.decoder = hydrate.NewDecoder(decoderOpts...)

	if cfg.jsonSchema != "" {
		compiled, err := jsonschema.CompileString(def.resourceName(), cfg.jsonSchema)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: compile json schema: %w", def.label(), err)
		}
		def.jsonSchema = compiled
	}

	for _, spec := range cfg.rules {
		evaluator := cfg.evaluator(spec.engine)
		if evaluator == nil {
			return nil, fmt.Errorf("schema: %s: rule %q: %s evaluator unavailable (build with -tags js_eval)", def.label(), spec.name, spec.engine)
		}
		program, err := evaluator.Compile(spec.expression)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: rule %q: %w", def.label(), spec.name, err)
		}
		def.rules = append(def.rules, compiledRule{
			name:       spec.name,
			engine:     spec.engine,
			expression: spec.expression,
			program:    program,
		})
	}
	return def, nil
}

// MustDefine is Define for package-level declarations; it panics on error.
func MustDefine[T any](opts ...Option) *Definition[T] {
	def, err := Define[T](opts...)
	if err != nil {
		panic(err)
	}
	return def
}

// WithCheck adds a typed check run after decoding. Call during setup only.
func (d *Definition[T]) WithCheck(name string, fn func(T) error) *Definition[T] {
	if fn != nil {
		d.checks = append(d.checks, check[T]{name: name, fn: fn})
	}
	return d
}

// WithDefaults fills absent (nil) parts of every candidate from defaults
// before validation. Call during setup only.
func (d *Definition[T]) WithDefaults(defaults T) *Definition[T] {
	clone := layering.Clone(defaults)
	d.defaults = &clone
	return d
}

// Name returns the label configured with Named.
func (d *Definition[T]) Name() string {
	return d.name
}

// Validate coerces candidate into T and runs every configured check. Raw JSON
// ([]byte or json.RawMessage) is decoded; a T or *T is used directly; any
// other value is converted through its JSON form.
func (d *Definition[T]) Validate(candidate any) (T, error) {
	var zero T

	if d.jsonSchema != nil {
		generic, err := d.genericForm(candidate)
		if err != nil {
			return zero, err
		}
		if err := d.jsonSchema.Validate(generic); err != nil {
			return zero, d.join([]*Violation{{Rule: "jsonschema", Err: err}})
		}
	}

	value, err := d.coerce(candidate)
	if err != nil {
		return zero, err
	}
	if d.defaults != nil {
		value = layering.Fill(value, *d.defaults)
	}

	var violations []*Violation
	if err := validateMethod(value); err != nil {
		violations = append(violations, &Violation{Rule: "Validate", Err: err})
	}

	if len(d.rules) > 0 {
		snapshot, err := toGeneric(value)
		if err != nil {
			return zero, fmt.Errorf("schema: %s: %w", d.label(), err)
		}
		ctx := rules.Context{Snapshot: snapshot, Label: d.label()}
		for _, rule := range d.rules {
			result, err := rule.program.Evaluate(ctx)
			if err != nil {
				violations = append(violations, &Violation{Rule: rule.name, Expr: rule.expression, Err: err})
				continue
			}
			if ok, _ := result.(bool); !ok {
				violations = append(violations, &Violation{Rule: rule.name, Expr: rule.expression, Err: ErrRuleFailed})
			}
		}
	}

	for _, c := range d.checks {
		if err := c.fn(value); err != nil {
			violations = append(violations, &Violation{Rule: c.name, Err: err})
		}
	}

	if len(violations) > 0 {
		return zero, d.join(violations)
	}
	return value, nil
}

func (d *Definition[T]) coerce(candidate any) (T, error) {
	var zero T
	switch typed := candidate.(type) {
	case T:
		return layering.Clone(typed), nil
	case *T:
		if typed == nil {
			return zero, fmt.Errorf("schema: %s: %w", d.label(), hydrate.ErrNullPayload)
		}
		return layering.Clone(*typed), nil
	case json.RawMessage:
		return d.decode(typed)
	case []byte:
		return d.decode(typed)
	default:
		if candidate == nil {
			return zero, fmt.Errorf("schema: %s: %w", d.label(), hydrate.ErrNullPayload)
		}
		raw, err := json.Marshal(candidate)
		if err != nil {
			return zero, fmt.Errorf("schema: %s: encode candidate: %w", d.label(), err)
		}
		return d.decode(raw)
	}
}

func (d *Definition[T]) decode(raw []byte) (T, error) {
	value, err := d.decoder.Decode(hydrate.Context{Schema: d.name}, raw)
	if err != nil {
		// Presence violations come back wrapped by the decoder; surface them
		// as-is so callers can inspect them with Violations.
		if violations := Violations(err); len(violations) > 0 {
			var zero T
			return zero, errors.Join(asErrors(violations)...)
		}
		var zero T
		return zero, fmt.Errorf("schema: %s: %w", d.label(), err)
	}
	return value, nil
}

// genericForm returns the JSON-compatible form of candidate for JSON Schema
// validation. Raw payloads are parsed; everything else is round-tripped
// through encoding/json.
func (d *Definition[T]) genericForm(candidate any) (any, error) {
	var (
		out any
		err error
	)
	switch typed := candidate.(type) {
	case json.RawMessage:
		err = json.Unmarshal(typed, &out)
	case []byte:
		err = json.Unmarshal(typed, &out)
	default:
		out, err = toGeneric(candidate)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", d.label(), err)
	}
	return out, nil
}

func (d *Definition[T]) join(violations []*Violation) error {
	for _, v := range violations {
		if v.Schema == "" {
			v.Schema = d.name
		}
	}
	return errors.Join(asErrors(violations)...)
}

func (d *Definition[T]) label() string {
	if d.name == "" {
		return "value"
	}
	return d.name
}

func (d *Definition[T]) resourceName() string {
	if d.name == "" {
		return "schema.json"
	}
	return d.name + ".json"
}

func asErrors(violations []*Violation) []error {
	out := make([]error, len(violations))
	for i, v := range violations {
		out[i] = v
	}
	return out
}

func toGeneric(value any) (any, error) {
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

// validateMethod invokes a Validate() error method on value or its address.
func validateMethod[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
