package rules

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEngine struct {
	cfg engineConfig
}

// NewExprEngine returns an Engine backed by expr-lang/expr. Properties that
// do not resolve read as nil.
func NewExprEngine(opts ...EngineOption) Engine {
	return &exprEngine{cfg: applyEngineOptions(opts)}
}

func (e *exprEngine) Name() string { return "expr" }

func (e *exprEngine) Evaluate(ctx Context, expression string) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, ctx, expression)
}

func (e *exprEngine) Compile(expression string) (Program, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return &exprProgram{engine: e, program: program, expression: expression}, nil
}

func (e *exprEngine) compile(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(e.Name(), expression, "", ErrEmptyExpression)
	}
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(e.Name() + ":" + expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.cfg.registry.Names() {
		options = append(options, exprlang.Function(name, e.cfg.registry.bound(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(e.Name()+":"+expression, program)
	}
	return program, nil
}

func (e *exprEngine) run(program *exprvm.Program, ctx Context, expression string) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(program, ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
	}
	return result, nil
}

type exprProgram struct {
	engine     *exprEngine
	program    *exprvm.Program
	expression string
}

func (p *exprProgram) Evaluate(ctx Context) (any, error) {
	return p.engine.run(p.program, ctx, p.expression)
}
