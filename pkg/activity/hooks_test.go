package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " versioned.saved ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " versioned.key ",
		ObjectID:   " workouts ",
		Channel:    " versioned ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "versioned.saved" || got.ObjectType != "versioned.key" || got.ObjectID != "workouts" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "versioned" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestNormalizeEventSplitsNamespacedKeys(t *testing.T) {
	got := NormalizeEvent(Event{Verb: VerbSaved, ObjectID: "user-1/dry-fire-trainer"})
	if got.ObjectType != ObjectTypeKey {
		t.Fatalf("expected key object type, got %q", got.ObjectType)
	}
	if got.Metadata["namespace"] != "user-1" || got.Metadata["key"] != "dry-fire-trainer" {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}

	plain := NormalizeEvent(Event{Verb: VerbSaved, ObjectType: ObjectTypeKey, ObjectID: "workouts"})
	if _, ok := plain.Metadata["namespace"]; ok {
		t.Fatalf("plain keys carry no namespace: %+v", plain.Metadata)
	}

	explicit := NormalizeEvent(Event{
		Verb:       VerbSaved,
		ObjectType: ObjectTypeKey,
		ObjectID:   "a/b/c",
		Metadata:   map[string]any{"key": "custom"},
	})
	if explicit.Metadata["namespace"] != "a/b" || explicit.Metadata["key"] != "custom" {
		t.Fatalf("explicit metadata should win: %+v", explicit.Metadata)
	}

	other := NormalizeEvent(Event{Verb: "x", ObjectType: "drill", ObjectID: "a/b"})
	if other.Metadata != nil {
		t.Fatalf("non-key events keep their metadata: %+v", other.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbSaved}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbSaved, ObjectType: ObjectTypeKey, ObjectID: "k"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbSaved, ObjectType: ObjectTypeKey, ObjectID: "k"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() || nilEmitter.Emit(context.Background(), event) != nil {
		t.Fatalf("nil emitter should be a no-op")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Identity: Identity{UserID: "owner"}})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	last, ok := capture.Last()
	if !ok {
		t.Fatalf("expected one event captured")
	}
	if last.Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", last.Channel)
	}
	if last.UserID != "owner" {
		t.Fatalf("expected identity applied, got %q", last.UserID)
	}
}

func TestEmitterPreservesExplicitFields(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default", Identity: Identity{UserID: "owner"}})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbCleared,
		ObjectType: ObjectTypeKey,
		ObjectID:   "k",
		Channel:    "custom",
		UserID:     "someone",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := capture.Events[0]
	if got.Channel != "custom" || got.UserID != "someone" {
		t.Fatalf("expected explicit fields preserved, got %+v", got)
	}
	if !got.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", got.OccurredAt)
	}
}
