//go:build js_eval

package rules

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEngine struct {
	cfg engineConfig
}

// NewJSEngine returns an Engine backed by goja. Each evaluation runs in a
// fresh runtime.
func NewJSEngine(opts ...EngineOption) (Engine, error) {
	return &jsEngine{cfg: applyEngineOptions(opts)}, nil
}

func (e *jsEngine) Name() string { return "js" }

func (e *jsEngine) Evaluate(ctx Context, expression string) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, ctx, expression)
}

func (e *jsEngine) Compile(expression string) (Program, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return &jsProgram{engine: e, program: program, expression: expression}, nil
}

func (e *jsEngine) compile(expression string) (*goja.Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(e.Name(), expression, "", ErrEmptyExpression)
	}
	key := e.Name() + ":" + expression
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEngine) run(program *goja.Program, ctx Context, expression string) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	for key, value := range ctx.bindings() {
		if err := vm.Set(key, value); err != nil {
			return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
		}
	}
	for _, name := range e.cfg.registry.Names() {
		if err := vm.Set(name, e.cfg.registry.bound(name)); err != nil {
			return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
	}
	return value.Export(), nil
}

type jsProgram struct {
	engine     *jsEngine
	program    *goja.Program
	expression string
}

func (p *jsProgram) Evaluate(ctx Context) (any, error) {
	return p.engine.run(p.program, ctx, p.expression)
}

// JSAvailable reports whether NewJSEngine is functional in this build.
func JSAvailable() bool { return true }
