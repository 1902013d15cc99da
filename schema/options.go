package schema

import (
	"strings"

	"github.com/goliatone/go-versioned/rules"
)

// Option configures a Definition at construction time.
type Option func(*settings)

type ruleSpec struct {
	name       string
	engine     string
	expression string
}

type settings struct {
	name          string
	strict        bool
	allowMissing  bool
	jsonSchema    string
	rules         []ruleSpec
	prepare       []func(any) (any, error)
	registry      *rules.FunctionRegistry
	programCache  rules.ProgramCache
	engines       map[string]rules.Evaluator
}

// Named labels the schema in violations and evaluator errors.
func Named(name string) Option {
	return func(s *settings) {
		s.name = strings.TrimSpace(name)
	}
}

// DisallowUnknownFields rejects payload keys that do not map onto T.
func DisallowUnknownFields() Option {
	return func(s *settings) {
		s.strict = true
	}
}

// AllowMissingFields turns off the presence check so absent fields decode to
// their zero value.
func AllowMissingFields() Option {
	return func(s *settings) {
		s.allowMissing = true
	}
}

// JSONSchema validates the JSON form of every candidate against document.
func JSONSchema(document string) Option {
	return func(s *settings) {
		s.jsonSchema = document
	}
}

// Prepare rewrites the generic JSON form of raw payloads before decoding.
func Prepare(fn func(any) (any, error)) Option {
	return func(s *settings) {
		if fn != nil {
			s.prepare = append(s.prepare, fn)
		}
	}
}

// ExprRule adds an expr-lang expression that must evaluate to true.
func ExprRule(name, expression string) Option {
	return ruleOption("expr", name, expression)
}

// CELRule adds a CEL expression that must evaluate to true.
func CELRule(name, expression string) Option {
	return ruleOption("cel", name, expression)
}

// JSRule adds a JavaScript expression that must evaluate to true. Requires the
// js_eval build tag.
func JSRule(name, expression string) Option {
	return ruleOption("js", name, expression)
}

func ruleOption(engine, name, expression string) Option {
	return func(s *settings) {
		s.rules = append(s.rules, ruleSpec{name: name, engine: engine, expression: expression})
	}
}

// WithFunctionRegistry exposes helper functions to rule expressions.
func WithFunctionRegistry(registry *rules.FunctionRegistry) Option {
	return func(s *settings) {
		s.registry = registry.Clone()
	}
}

// WithProgramCache shares compiled programs between definitions.
func WithProgramCache(cache rules.ProgramCache) Option {
	return func(s *settings) {
		s.programCache = cache
	}
}

func (s *settings) evaluator(engine string) rules.Evaluator {
	if s.engines == nil {
		s.engines = map[string]rules.Evaluator{}
	}
	if evaluator, ok := s.engines[engine]; ok {
		return evaluator
	}
	var evaluator rules.Evaluator
	switch engine {
	case "expr":
		evaluator = rules.NewExprEvaluator(
			rules.ExprWithProgramCache(s.programCache),
			rules.ExprWithFunctionRegistry(s.registry),
		)
	case "cel":
		evaluator = rules.NewCELEvaluator(
			rules.CELWithProgramCache(s.programCache),
			rules.CELWithFunctionRegistry(s.registry),
		)
	case "js":
		evaluator = rules.NewJSEvaluator(
			rules.JSWithProgramCache(s.programCache),
			rules.JSWithFunctionRegistry(s.registry),
		)
	}
	if evaluator != nil {
		s.engines[engine] = evaluator
	}
	return evaluator
}
