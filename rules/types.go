package rules

import "time"

// Context carries the inputs of one rule evaluation.
type Context struct {
	// Snapshot is the JSON form of the value under validation. When it is a
	// map its top-level keys are exposed as variables.
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	// Label names the schema being validated, used in error metadata.
	Label string
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx Context) label() string {
	if ctx.Label != "" {
		return ctx.Label
	}
	return "unknown"
}

func (ctx Context) snapshotMap() map[string]any {
	if m, ok := ctx.Snapshot.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (Program, error)
}

// Program is a reusable compiled expression.
type Program interface {
	Evaluate(ctx Context) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
