package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNullPayload is returned when the payload is empty or JSON null. A null
// payload never satisfies a typed schema, even though encoding/json would
// happily decode it into a zero value.
var ErrNullPayload = errors.New("hydrate: payload is null")

// Context identifies the payload being decoded in error messages.
type Context struct {
	Schema string
}

func (c Context) label() string {
	if c.Schema == "" {
		return "payload"
	}
	return fmt.Sprintf("schema %q", c.Schema)
}

// PreHook lets callers rewrite the generic JSON form before typed decoding.
type PreHook func(Context, any) (any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts raw JSON payloads into strongly typed values.
type Decoder[T any] struct {
	preHooks     []PreHook
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload []byte) (T, error) {
	var zero T

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return zero, fmt.Errorf("%w (%s)", ErrNullPayload, ctx.label())
	}

	if len(d.preHooks) > 0 {
		var current any
		if err := json.Unmarshal(trimmed, &current); err != nil {
			return zero, fmt.Errorf("hydrate: parse %s: %w", ctx.label(), err)
		}
		for _, hook := range d.preHooks {
			next, err := hook(ctx, current)
			if err != nil {
				return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
			}
			if next != nil {
				current = next
			}
		}
		if current == nil {
			return zero, fmt.Errorf("%w (%s)", ErrNullPayload, ctx.label())
		}
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal %s: %w", ctx.label(), err)
		}
		trimmed = buffer
	}

	var result T
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for _, configure := range d.configureDec {
		configure(decoder)
	}
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
	}
	if decoder.More() {
		return zero, fmt.Errorf("hydrate: decode %s: trailing data after value", ctx.label())
	}
	return result, nil
}
