package rules

import (
	"fmt"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxCELArity bounds the overloads generated for registry functions.
const maxCELArity = 4

type celEngine struct {
	cfg engineConfig
}

// NewCELEngine returns an Engine backed by cel-go. Every key of the context
// values is declared as a dynamic variable, so a program is compiled per
// distinct property set.
func NewCELEngine(opts ...EngineOption) Engine {
	return &celEngine{cfg: applyEngineOptions(opts)}
}

func (e *celEngine) Name() string { return "cel" }

func (e *celEngine) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluationError(e.Name(), expression, "", ErrEmptyExpression)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.Values)
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, ctx.NodeID, err)
	}
	return out.Value(), nil
}

// Compile checks the syntax of expression and returns a program that is
// type-checked lazily for the property set it is run with.
func (e *celEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(e.Name(), expression, "", ErrEmptyExpression)
	}
	env, err := e.env(nil)
	if err != nil {
		return nil, wrapEvaluationError(e.Name(), expression, "", err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(e.Name(), expression, "", issues.Err())
	}
	return &celProgram{engine: e, expression: expression}, nil
}

func (e *celEngine) loadOrCompile(expression string, values map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	key := e.Name() + ":" + strings.Join(names, ",") + ":" + expression

	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.env(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEngine) env(names []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("node", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	for _, name := range names {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	for _, name := range e.cfg.registry.Names() {
		opts = append(opts, e.function(name))
	}
	return celgo.NewEnv(opts...)
}

// function declares name with dynamic overloads of arity zero to maxCELArity.
func (e *celEngine) function(name string) celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, maxCELArity+1)
	for arity := 0; arity <= maxCELArity; arity++ {
		args := make([]*celgo.Type, arity)
		for i := range args {
			args[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.binding(name)),
		))
	}
	return celgo.Function(name, overloads...)
}

func (e *celEngine) binding(name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, v := range values {
			args = append(args, v.Value())
		}
		result, err := e.cfg.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celProgram struct {
	engine     *celEngine
	expression string
}

func (p *celProgram) Evaluate(ctx Context) (any, error) {
	return p.engine.Evaluate(ctx, p.expression)
}
