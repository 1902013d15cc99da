package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
	"github.com/goliatone/go-versioned/pkg/store"
	"github.com/goliatone/go-versioned/schema"
)

type counterV0 struct {
	Count int `json:"count"`
}

type counterV1 struct {
	Count int    `json:"count"`
	Unit  string `json:"unit"`
}

func counterModels() (*versioned.Model[counterV0], *versioned.Model[counterV1]) {
	v0 := versioned.New(schema.MustDefine[counterV0](), counterV0{}, versioned.WithName("counter"))
	positive := schema.MustDefine[counterV1](schema.ExprRule("non-negative", "count >= 0"))
	v1 := versioned.Migrate(v0, positive, counterV1{Unit: "reps"}, func(prev counterV0) (counterV1, error) {
		return counterV1{Count: prev.Count, Unit: "reps"}, nil
	})
	return v0, v1
}

func newBinding(t *testing.T, s store.Store) (*store.Binding[counterV1], *activity.CaptureHook) {
	t.Helper()
	_, v1 := counterModels()
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	binding, err := store.Bind(s, v1, "counter", store.WithEmitter(emitter))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return binding, capture
}

func TestBindingLoadAbsentKeyReturnsDefault(t *testing.T) {
	ctx := context.Background()
	binding, capture := newBinding(t, store.NewMemoryStore())

	snapshot, err := binding.Inspect(ctx)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if snapshot.Found || snapshot.Value != (counterV1{Unit: "reps"}) {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("absent keys should not emit, got %v", capture.Verbs())
	}
}

func TestBindingSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, capture := newBinding(t, mem)

	if err := binding.Save(ctx, counterV1{Count: 3, Unit: "sets"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _, _ := mem.Get(ctx, "counter")
	if raw != `{"version":1,"data":{"count":3,"unit":"sets"}}` {
		t.Fatalf("unexpected stored value %s", raw)
	}
	got, err := binding.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != (counterV1{Count: 3, Unit: "sets"}) {
		t.Fatalf("unexpected value %+v", got)
	}
	if diff := cmp.Diff([]string{activity.VerbSaved}, capture.Verbs()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestBindingSaveRejectsInvalidValue(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, capture := newBinding(t, mem)

	err := binding.Save(ctx, counterV1{Count: -1, Unit: "reps"})
	var validation *versioned.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok, _ := mem.Get(ctx, "counter"); ok {
		t.Fatalf("invalid value should not be written")
	}
	if len(capture.Events) != 0 {
		t.Fatalf("unexpected events %v", capture.Verbs())
	}
}

func TestBindingReportsMigrationAndFallback(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, capture := newBinding(t, mem)

	_ = mem.Set(ctx, "counter", `{"version":0,"data":{"count":4}}`)
	got, err := binding.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != (counterV1{Count: 4, Unit: "reps"}) {
		t.Fatalf("unexpected migrated value %+v", got)
	}

	_ = mem.Set(ctx, "counter", "{broken")
	got, err = binding.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != (counterV1{Unit: "reps"}) {
		t.Fatalf("expected default, got %+v", got)
	}

	if diff := cmp.Diff([]string{activity.VerbMigrated, activity.VerbFallback}, capture.Verbs()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	fallback, _ := capture.Last()
	if fallback.Metadata["reason"] != string(versioned.ReasonMalformedJSON) || fallback.ObjectID != "counter" {
		t.Fatalf("unexpected fallback event %+v", fallback)
	}
	if fallback.Metadata["model"] != "counter" || fallback.Channel != activity.DefaultChannel {
		t.Fatalf("expected model and channel metadata, got %+v", fallback)
	}
}

func TestBindingUpdate(t *testing.T) {
	ctx := context.Background()
	binding, _ := newBinding(t, store.NewMemoryStore())

	next, err := binding.Update(ctx, func(current counterV1) (counterV1, error) {
		current.Count++
		return current, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Count != 1 {
		t.Fatalf("unexpected value %+v", next)
	}

	boom := errors.New("boom")
	if _, err := binding.Update(ctx, func(counterV1) (counterV1, error) { return counterV1{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if _, err := binding.Update(ctx, nil); err == nil {
		t.Fatalf("expected error for nil mutator")
	}
	got, _ := binding.Load(ctx)
	if got.Count != 1 {
		t.Fatalf("failed updates should not write, got %+v", got)
	}
}

func TestBindingExportPersistsDefault(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, _ := newBinding(t, mem)

	exported, err := binding.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported != `{"version":1,"data":{"count":0,"unit":"reps"}}` {
		t.Fatalf("unexpected export %s", exported)
	}
	if raw, ok, _ := mem.Get(ctx, "counter"); !ok || raw != exported {
		t.Fatalf("export should persist the default, got %q ok=%v", raw, ok)
	}

	_ = mem.Set(ctx, "counter", `{"version":0,"data":{"count":9}}`)
	exported, err = binding.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported != `{"version":0,"data":{"count":9}}` {
		t.Fatalf("export should return the stored string as is, got %s", exported)
	}
}

func TestBindingImport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, capture := newBinding(t, mem)

	value, trace, err := binding.Import(ctx, `{"count":12}`)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if value != (counterV1{Count: 12, Unit: "reps"}) || !trace.Migrated() {
		t.Fatalf("unexpected import %+v %+v", value, trace)
	}
	raw, _, _ := mem.Get(ctx, "counter")
	if raw != `{"version":1,"data":{"count":12,"unit":"reps"}}` {
		t.Fatalf("import should store the current version, got %s", raw)
	}

	value, trace, err = binding.Import(ctx, "nonsense")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !trace.Fallback || value.Count != 0 {
		t.Fatalf("expected fallback import, got %+v %+v", value, trace)
	}
	want := []string{activity.VerbMigrated, activity.VerbImported, activity.VerbFallback, activity.VerbImported}
	if diff := cmp.Diff(want, capture.Verbs()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestBindingClear(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	binding, capture := newBinding(t, mem)

	_ = binding.Save(ctx, counterV1{Count: 2, Unit: "reps"})
	if err := binding.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := mem.Get(ctx, "counter"); ok {
		t.Fatalf("expected key removed")
	}
	last, _ := capture.Last()
	if last.Verb != activity.VerbCleared {
		t.Fatalf("expected cleared event, got %s", last.Verb)
	}
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, f.err
}

func TestBindingSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	binding, _ := newBinding(t, failingStore{Store: store.NewMemoryStore(), err: boom})

	got, err := binding.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if got != (counterV1{Unit: "reps"}) {
		t.Fatalf("expected default alongside the error, got %+v", got)
	}
	if _, err := binding.Export(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected export to fail, got %v", err)
	}
}

func TestBindRequiresArguments(t *testing.T) {
	_, v1 := counterModels()
	if _, err := store.Bind[counterV1](nil, v1, "k"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := store.Bind[counterV1](store.NewMemoryStore(), nil, "k"); err == nil {
		t.Fatalf("expected error for nil model")
	}
	if _, err := store.Bind(store.NewMemoryStore(), v1, ""); !errors.Is(err, store.ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}

type combined struct {
	A counterV0 `json:"a"`
	B counterV0 `json:"b"`
}

func TestLegacyAdopt(t *testing.T) {
	ctx := context.Background()
	legacyModel := versioned.New(schema.MustDefine[combined](), combined{})

	t.Run("absent legacy key", func(t *testing.T) {
		mem := store.NewMemoryStore()
		legacy := store.Legacy[combined]{Store: mem, Model: legacyModel, Key: "legacy", Targets: []string{"a", "b"}}
		ran, err := legacy.Adopt(ctx, func(context.Context, combined) error {
			t.Fatalf("apply should not run")
			return nil
		})
		if err != nil || ran {
			t.Fatalf("expected no-op, got ran=%v err=%v", ran, err)
		}
	})

	t.Run("targets already present", func(t *testing.T) {
		mem := store.NewMemoryStore()
		_ = mem.Set(ctx, "legacy", `{"a":{"count":1},"b":{"count":2}}`)
		_ = mem.Set(ctx, "b", `{"version":0,"data":{"count":5}}`)
		legacy := store.Legacy[combined]{Store: mem, Model: legacyModel, Key: "legacy", Targets: []string{"a", "b"}}

		ran, err := legacy.Adopt(ctx, func(context.Context, combined) error {
			t.Fatalf("apply should not run")
			return nil
		})
		if err != nil || ran {
			t.Fatalf("expected legacy removal only, got ran=%v err=%v", ran, err)
		}
		if _, ok, _ := mem.Get(ctx, "legacy"); ok {
			t.Fatalf("legacy key should be removed")
		}
	})

	t.Run("split into targets", func(t *testing.T) {
		mem := store.NewMemoryStore()
		_ = mem.Set(ctx, "legacy", `{"a":{"count":1},"b":{"count":2}}`)
		capture := &activity.CaptureHook{}
		legacy := store.Legacy[combined]{
			Store:   mem,
			Model:   legacyModel,
			Key:     "legacy",
			Targets: []string{"a", "b"},
			Emitter: activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true}),
		}

		var got combined
		ran, err := legacy.Adopt(ctx, func(_ context.Context, value combined) error {
			got = value
			return nil
		})
		if err != nil || !ran {
			t.Fatalf("expected adoption, got ran=%v err=%v", ran, err)
		}
		if got.A.Count != 1 || got.B.Count != 2 {
			t.Fatalf("unexpected legacy value %+v", got)
		}
		if _, ok, _ := mem.Get(ctx, "legacy"); ok {
			t.Fatalf("legacy key should be removed")
		}
		if diff := cmp.Diff([]string{activity.VerbAdopted}, capture.Verbs()); diff != "" {
			t.Fatalf("unexpected events (-want +got):\n%s", diff)
		}
	})

	t.Run("apply failure keeps legacy key", func(t *testing.T) {
		mem := store.NewMemoryStore()
		_ = mem.Set(ctx, "legacy", `{"a":{"count":1},"b":{"count":2}}`)
		legacy := store.Legacy[combined]{Store: mem, Model: legacyModel, Key: "legacy", Targets: []string{"a"}}

		_, err := legacy.Adopt(ctx, func(context.Context, combined) error { return errors.New("write failed") })
		if err == nil || !strings.Contains(err.Error(), "write failed") {
			t.Fatalf("expected apply error, got %v", err)
		}
		if _, ok, _ := mem.Get(ctx, "legacy"); !ok {
			t.Fatalf("legacy key should survive a failed apply")
		}
	})
}
