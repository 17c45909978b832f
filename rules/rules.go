// Package rules evaluates expressions against the resolved values of an
// ancestor node. It is how derived attributes such as a full name are
// computed from inherited parts.
package rules

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/goliatone/go-ancestor"
)

// Context carries the inputs of one evaluation.
type Context struct {
	// Values maps property names to resolved values. Unresolved declared
	// properties are present with a nil value.
	Values map[string]any
	NodeID string
	Type   string
	Now    *time.Time
	Args   map[string]any
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx Context) nodeBinding() map[string]any {
	return map[string]any{"id": ctx.NodeID, "type": ctx.Type}
}

// bindings returns the variables every engine exposes: the property values
// plus now, args and node.
func (ctx Context) bindings() map[string]any {
	env := make(map[string]any, len(ctx.Values)+3)
	maps.Copy(env, ctx.Values)
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["node"] = ctx.nodeBinding()
	return env
}

// Engine compiles and runs expressions.
type Engine interface {
	Name() string
	Evaluate(ctx Context, expression string) (any, error)
	Compile(expression string) (Program, error)
}

// Program is a compiled expression.
type Program interface {
	Evaluate(ctx Context) (any, error)
}

// ContextFor builds an evaluation context from the resolved values of node.
// Pointer values are dereferenced.
func ContextFor(node *ancestor.Node) Context {
	ctx := Context{Values: map[string]any{}}
	if node == nil {
		return ctx
	}
	ctx.NodeID = node.ID()
	ctx.Type = node.TypeName()
	for _, name := range node.Declared().Names() {
		ctx.Values[name] = deref(node.Value(name))
	}
	return ctx
}

// Evaluate runs expression against node with engine, defaulting to expr.
func Evaluate(engine Engine, node *ancestor.Node, expression string) (any, error) {
	if engine == nil {
		engine = NewExprEngine()
	}
	ctx := ContextFor(node)
	value, err := engine.Evaluate(ctx, expression)
	if err != nil {
		return nil, wrapEvaluationError(engine.Name(), expression, ctx.NodeID, err)
	}
	return value, nil
}

// EvaluateString is Evaluate for expressions yielding a string.
func EvaluateString(engine Engine, node *ancestor.Node, expression string) (string, error) {
	if engine == nil {
		engine = NewExprEngine()
	}
	value, err := Evaluate(engine, node, expression)
	if err != nil {
		return "", err
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", wrapEvaluationError(engine.Name(), expression, node.ID(),
			fmt.Errorf("result is %T, want string", value))
	}
}

func deref(value any) any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
