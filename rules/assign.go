package rules

import (
	"github.com/goliatone/go-ancestor"
	"github.com/goliatone/go-ancestor/internal/hydrate"
)

// AssignOption configures how Assign converts a result.
type AssignOption func(*assignConfig)

type assignConfig struct {
	decoder []hydrate.Option
}

// AssignStrict rejects object keys in the result that match no struct field
// of the property type.
func AssignStrict() AssignOption {
	return func(cfg *assignConfig) {
		cfg.decoder = append(cfg.decoder, hydrate.WithDisallowUnknownFields())
	}
}

// AssignUseNumber keeps numbers held in interface values as json.Number.
func AssignUseNumber() AssignOption {
	return func(cfg *assignConfig) {
		cfg.decoder = append(cfg.decoder, hydrate.WithUseNumber())
	}
}

// AssignTransform rewrites the result before it is converted.
func AssignTransform(fn func(property string, value any) (any, error)) AssignOption {
	return func(cfg *assignConfig) {
		if fn != nil {
			cfg.decoder = append(cfg.decoder, hydrate.WithPreHook(fn))
		}
	}
}

// Assign evaluates expression against node and stores the result as the local
// value of property, converted to the property's Go type. A nil result clears
// the local value. Observers of node are notified as with Set.
func Assign(engine Engine, node *ancestor.Node, property, expression string, opts ...AssignOption) error {
	if node == nil || node.TypeName() == "" {
		return ancestor.ErrNotInitialized
	}
	if engine == nil {
		engine = NewExprEngine()
	}
	desc, ok := node.Declared().Lookup(property)
	if !ok {
		return &ancestor.UnknownPropertyError{Type: node.TypeName(), Property: property}
	}
	cfg := assignConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	value, err := Evaluate(engine, node, expression)
	if err != nil {
		return err
	}
	decoded, err := hydrate.New(cfg.decoder...).Decode(property, value, desc.Type())
	if err != nil {
		return wrapEvaluationError(engine.Name(), expression, node.ID(), err)
	}
	return node.Set(property, decoded.Interface())
}
