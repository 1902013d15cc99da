package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-versioned/pkg/store"
)

const legacyDryFire = `{"drills":[{"id":"draw","name":"Draw","parTime":2,"reps":2}],"sessions":[{"id":"s-1","date":"2024-03-01T13:05:00.000Z","drillId":"draw","drillName":"Draw","parTime":2,"completed":true,"shots":[{"time":2.5,"hit":true,"ignored":false},{"time":1.0,"hit":false,"ignored":false}]}]}`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCommandsRoundTrip(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	base := []string{"--store", "file", "--path", dir, "--namespace", "alice"}

	input := filepath.Join(t.TempDir(), "dry-fire.json")
	if err := os.WriteFile(input, []byte(legacyDryFire), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, logs, err := run(t, "", append(base, "import", "dry-fire", input)...)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, want := range []string{"source_version: 0", "result: slow", "result: miss", "key: alice/dry-fire-trainer"} {
		if !strings.Contains(out, want) {
			t.Fatalf("import output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(logs, "versioned.imported") {
		t.Fatalf("expected activity to be logged, got:\n%s", logs)
	}

	out, _, err = run(t, "", append(base, "inspect", "dry-fire", "-o", "json")...)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, `"found": true`) || !strings.Contains(out, `"fallback": false`) {
		t.Fatalf("unexpected inspect output:\n%s", out)
	}

	out, _, err = run(t, "", append(base, "export", "dry-fire")...)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, `{"version":1,"data":`) {
		t.Fatalf("unexpected export:\n%s", out)
	}

	if _, _, err := run(t, "", append(base, "reset", "dry-fire")...); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, _, err = run(t, "", append(base, "inspect", "dry-fire")...)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "found: false") {
		t.Fatalf("expected key to be cleared:\n%s", out)
	}
}

func TestImportFromStdinFallsBack(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	out, logs, err := run(t, "definitely not json", "--path", dir, "import", "workout-config")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "fallback: true") || !strings.Contains(out, "reason: malformed_json") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(logs, "replaced by the default") {
		t.Fatalf("expected a warning, got:\n%s", logs)
	}

	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	raw, ok, _ := fs.Get(context.Background(), "workout-tracker-config")
	if !ok || !strings.HasPrefix(raw, `{"version":0,`) {
		t.Fatalf("expected the default config to be stored, got %q", raw)
	}
}

func TestDescribeAndModels(t *testing.T) {
	isolateConfig(t)
	out, _, err := run(t, "", "--store", "memory", "describe", "dry-fire")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	for _, want := range []string{"has_migration: true", "path: sessions", "own: true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("describe output missing %q:\n%s", want, out)
		}
	}

	out, _, err = run(t, "", "--store", "memory", "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "dry-fire-trainer") || !strings.Contains(out, "workout-tracker-workouts") {
		t.Fatalf("unexpected models output:\n%s", out)
	}
}

func TestUnknownModel(t *testing.T) {
	isolateConfig(t)
	_, _, err := run(t, "", "--store", "memory", "inspect", "nope")
	if err == nil || !strings.Contains(err.Error(), `unknown model "nope"`) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestFailedCommandFlushesLogFile(t *testing.T) {
	isolateConfig(t)
	logFile := filepath.Join(t.TempDir(), "versioned.log")
	_, _, err := run(t, "", "--store", "memory", "--log-level", "debug", "--log-file", logFile, "inspect", "nope")
	if err == nil {
		t.Fatalf("expected unknown model error")
	}
	raw, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"store opened"`) {
		t.Fatalf("expected setup to be logged, got:\n%s", raw)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	s, closeStore, err := OpenStore(ctx, StoreConfig{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "kv.db"), Table: "kv"})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := closeStore(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, _, err := OpenStore(ctx, StoreConfig{Driver: "etcd"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
