package schema_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-versioned/rules"
	"github.com/goliatone/go-versioned/schema"
)

type drill struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	ParTime float64 `json:"parTime"`
	Reps    int     `json:"reps"`
}

type shot struct {
	Time *float64 `json:"time"`
	Hit  *bool    `json:"hit"`
	Note string   `json:"note,omitempty"`
}

type session struct {
	ID    string `json:"id"`
	Shots []shot `json:"shots"`
	Chaos *bool  `json:"chaosMode,omitempty"`
}

type person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p person) Validate() error {
	if strings.TrimSpace(p.FirstName) != p.FirstName {
		return errors.New("firstName must be trimmed")
	}
	return nil
}

func TestDefinitionDecodesRawJSON(t *testing.T) {
	def := schema.MustDefine[drill](schema.Named("drill"))
	got, err := def.Validate(json.RawMessage(`{"id":"draw","name":"Draw","parTime":2,"reps":20}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := drill{ID: "draw", Name: "Draw", ParTime: 2, Reps: 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinitionRequiresFields(t *testing.T) {
	def := schema.MustDefine[session](schema.Named("session"))

	_, err := def.Validate([]byte(`{"id":"s1","shots":[{"time":null}]}`))
	if !errors.Is(err, schema.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	violations := schema.Violations(err)
	if len(violations) != 1 || violations[0].Path != "shots[0].hit" {
		t.Fatalf("expected a single violation at shots[0].hit, got %v", violations)
	}
	if violations[0].Schema != "session" {
		t.Fatalf("expected violation to carry schema name, got %q", violations[0].Schema)
	}

	got, err := def.Validate([]byte(`{"id":"s1","shots":[{"time":null,"hit":true}]}`))
	if err != nil {
		t.Fatalf("nullable and omitempty fields should be accepted: %v", err)
	}
	if got.Chaos != nil || got.Shots[0].Time != nil || got.Shots[0].Hit == nil || !*got.Shots[0].Hit {
		t.Fatalf("unexpected decoded session %+v", got)
	}

	if _, err := def.Validate([]byte(`{"id":"s1","shots":null}`)); !errors.Is(err, schema.ErrMissingField) {
		t.Fatalf("null slice should be rejected, got %v", err)
	}
}

func TestDefinitionAllowMissingFields(t *testing.T) {
	def := schema.MustDefine[person](schema.AllowMissingFields())
	got, err := def.Validate([]byte(`{"firstName":"Single"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.FirstName != "Single" || got.LastName != "" {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestDefinitionRejectsNull(t *testing.T) {
	def := schema.MustDefine[person]()
	for _, candidate := range []any{json.RawMessage(`null`), nil, (*person)(nil)} {
		if _, err := def.Validate(candidate); err == nil {
			t.Fatalf("expected %#v to be rejected", candidate)
		}
	}
}

func TestDefinitionStrictDecoding(t *testing.T) {
	def := schema.MustDefine[person](schema.DisallowUnknownFields())
	if _, err := def.Validate([]byte(`{"firstName":"Ada","lastName":"Lovelace","extra":1}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestDefinitionRunsValidateMethod(t *testing.T) {
	def := schema.MustDefine[person]()
	_, err := def.Validate(person{FirstName: " Ada", LastName: "Lovelace"})
	if err == nil || !strings.Contains(err.Error(), "firstName must be trimmed") {
		t.Fatalf("expected Validate method error, got %v", err)
	}
}

func TestDefinitionCoercesGenericValues(t *testing.T) {
	def := schema.MustDefine[person]()
	got, err := def.Validate(map[string]any{"firstName": "Grace", "lastName": "Hopper"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != (person{FirstName: "Grace", LastName: "Hopper"}) {
		t.Fatalf("unexpected value %+v", got)
	}
	ptr := &person{FirstName: "Ada", LastName: "Lovelace"}
	got, err = def.Validate(ptr)
	if err != nil || got != *ptr {
		t.Fatalf("pointer candidate mismatch: %+v %v", got, err)
	}
}

func TestDefinitionExpressionRules(t *testing.T) {
	def := schema.MustDefine[drill](
		schema.Named("drill"),
		schema.ExprRule("par-time-range", "parTime > 0 && parTime <= 60"),
		schema.CELRule("reps-range", "reps >= 1.0 && reps <= 100.0"),
	)

	if _, err := def.Validate(drill{ID: "draw", ParTime: 2, Reps: 20}); err != nil {
		t.Fatalf("expected valid drill, got %v", err)
	}

	_, err := def.Validate(drill{ID: "draw", ParTime: 0, Reps: 200})
	if !errors.Is(err, schema.ErrRuleFailed) {
		t.Fatalf("expected ErrRuleFailed, got %v", err)
	}
	violations := schema.Violations(err)
	if len(violations) != 2 {
		t.Fatalf("expected both rules to fail, got %v", violations)
	}
	if violations[0].Rule != "par-time-range" || violations[1].Rule != "reps-range" {
		t.Fatalf("unexpected rule order %q, %q", violations[0].Rule, violations[1].Rule)
	}
}

type counter struct {
	Count int `json:"count"`
}

func TestDefinitionRuleFieldNamedLikeBuiltin(t *testing.T) {
	def := schema.MustDefine[counter](
		schema.Named("counter"),
		schema.ExprRule("non-negative", "count >= 0"),
	)
	if _, err := def.Validate(counter{Count: 2}); err != nil {
		t.Fatalf("expected valid counter, got %v", err)
	}
	if _, err := def.Validate(counter{Count: -1}); !errors.Is(err, schema.ErrRuleFailed) {
		t.Fatalf("expected ErrRuleFailed, got %v", err)
	}
}

func TestDefinitionRuleFunctions(t *testing.T) {
	registry := rules.NewFunctionRegistry()
	if err := registry.Register("slug", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToLower(strings.ReplaceAll(s, " ", "-")), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	def := schema.MustDefine[drill](
		schema.WithFunctionRegistry(registry),
		schema.WithProgramCache(rules.NewTTLCache(0)),
		schema.ExprRule("id-is-slug", "id == slug(name)"),
	)
	if _, err := def.Validate(drill{ID: "low-ready", Name: "Low Ready", ParTime: 1, Reps: 1}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := def.Validate(drill{ID: "x", Name: "Low Ready", ParTime: 1, Reps: 1}); !errors.Is(err, schema.ErrRuleFailed) {
		t.Fatalf("expected rule failure, got %v", err)
	}
}

func TestDefinitionJSONSchema(t *testing.T) {
	def, err := schema.Define[drill](
		schema.Named("drill"),
		schema.JSONSchema(`{
			"type": "object",
			"required": ["id", "name", "parTime", "reps"],
			"properties": {
				"parTime": {"type": "number", "exclusiveMinimum": 0, "maximum": 60},
				"reps": {"type": "integer", "minimum": 1, "maximum": 100}
			}
		}`),
	)
	if err != nil {
		t.Fatalf("define: %v", err)
	}

	if _, err := def.Validate([]byte(`{"id":"draw","name":"Draw","parTime":2,"reps":20}`)); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	_, err = def.Validate([]byte(`{"id":"draw","name":"Draw","parTime":2,"reps":2.5}`))
	violations := schema.Violations(err)
	if len(violations) != 1 || violations[0].Rule != "jsonschema" {
		t.Fatalf("expected jsonschema violation, got %v", err)
	}
	if _, err := def.Validate(drill{ID: "d", Name: "D", ParTime: 90, Reps: 1}); err == nil {
		t.Fatalf("typed candidates should be checked against the JSON Schema too")
	}
}

func TestDefineReportsConfigurationErrors(t *testing.T) {
	if _, err := schema.Define[drill](schema.ExprRule("broken", "reps >")); err == nil {
		t.Fatalf("expected compile error for broken expression")
	}
	if _, err := schema.Define[drill](schema.JSONSchema(`{"type": 12}`)); err == nil {
		t.Fatalf("expected compile error for invalid JSON Schema")
	}
	if !rules.JSAvailable() {
		if _, err := schema.Define[drill](schema.JSRule("js", "reps > 0")); err == nil {
			t.Fatalf("expected js rule to fail without js_eval build tag")
		}
	}
}

func TestDefinitionDefaultsAndChecks(t *testing.T) {
	chaos := false
	def := schema.MustDefine[session](schema.Named("session")).
		WithDefaults(session{Shots: []shot{}, Chaos: &chaos}).
		WithCheck("unique-id", func(s session) error {
			if s.ID == "" {
				return errors.New("id is required")
			}
			return nil
		})

	got, err := def.Validate(session{ID: "s1"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Shots == nil || got.Chaos == nil || *got.Chaos {
		t.Fatalf("expected defaults to fill absent fields, got %+v", got)
	}

	_, err = def.Validate(session{})
	violations := schema.Violations(err)
	if len(violations) != 1 || violations[0].Rule != "unique-id" {
		t.Fatalf("expected check violation, got %v", err)
	}
}

func TestDefinitionPrepareRewritesPayload(t *testing.T) {
	def := schema.MustDefine[person](schema.Prepare(func(payload any) (any, error) {
		m, ok := payload.(map[string]any)
		if !ok {
			return payload, nil
		}
		if full, ok := m["fullName"].(string); ok {
			first, last, _ := strings.Cut(full, " ")
			return map[string]any{"firstName": first, "lastName": last}, nil
		}
		return m, nil
	}))
	got, err := def.Validate([]byte(`{"fullName":"Grace Hopper"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != (person{FirstName: "Grace", LastName: "Hopper"}) {
		t.Fatalf("unexpected value %+v", got)
	}
}
