package rules

import (
	exprlang "github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"
	exprtypes "github.com/expr-lang/expr/types"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprOption configures an expr evaluator instance.
type ExprOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprOption {
	return func(e *exprEvaluator) {
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes rule expressions using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Engine() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", ErrEmptyExpression)
	}
	return e.run(ctx.withDefaults(), expression)
}

// Compile checks the syntax of expression. Type checking waits for the first
// evaluation, when the snapshot keys that shadow builtins such as count or len
// are known.
func (e *exprEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", ErrEmptyExpression)
	}
	if _, err := exprparser.Parse(expression); err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	return &exprProgram{evaluator: e, expression: expression}, nil
}

func (e *exprEvaluator) run(ctx Context, expression string) (any, error) {
	env := e.environment(ctx)
	program, err := e.loadOrCompile(expression, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	return result, nil
}

// loadOrCompile compiles expression against the variable names of env. The
// names are declared without a type so one program serves every snapshot with
// the same keys.
func (e *exprEvaluator) loadOrCompile(expression string, env map[string]any) (*exprvm.Program, error) {
	key := "expr:" + signature(env) + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	declared := exprtypes.Map{exprtypes.Extra: exprtypes.Any}
	for name := range env {
		declared[name] = exprtypes.Any
	}
	options := []exprlang.Option{
		exprlang.Env(declared),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.registry.identifiers() {
		if _, shadowed := env[name]; shadowed {
			continue
		}
		fn := name
		options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		}))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) environment(ctx Context) map[string]any {
	env := map[string]any{
		"now":   ctx.timestamp(),
		"args":  ctx.Args,
		"value": ctx.Snapshot,
	}
	for key, value := range ctx.snapshotMap() {
		env[key] = value
	}
	if e.registry != nil {
		env["call"] = e.registry.bindings()["call"]
	}
	return env
}

type exprProgram struct {
	evaluator  *exprEvaluator
	expression string
}

func (p *exprProgram) Evaluate(ctx Context) (any, error) {
	return p.evaluator.run(ctx.withDefaults(), p.expression)
}
