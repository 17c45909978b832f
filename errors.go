package ancestor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProperty indicates a property name outside the type's schema.
	ErrUnknownProperty = errors.New("ancestor: unknown property")
	// ErrScalarInheritance indicates a non-reference attribute was selected for
	// inheritance.
	ErrScalarInheritance = errors.New("ancestor: only reference attributes can be inherited")
	// ErrUndeclaredProperty indicates a schema override named a property the
	// type does not declare.
	ErrUndeclaredProperty = errors.New("ancestor: property not declared by type")
	// ErrCyclicChain indicates the ancestor chain leads back to the node being
	// initialised.
	ErrCyclicChain = errors.New("ancestor: ancestor chain is cyclic")
	// ErrMissingNode indicates the type does not embed ancestor.Node.
	ErrMissingNode = errors.New("ancestor: type must be a struct embedding ancestor.Node")
	// ErrNotInitialized indicates a Node that never went through Init.
	ErrNotInitialized = errors.New("ancestor: node not initialized")
	// ErrAlreadyInitialized indicates a second Init on the same node.
	ErrAlreadyInitialized = errors.New("ancestor: node already initialized")
	// ErrReadonlyProperty indicates Set on a readonly attribute.
	ErrReadonlyProperty = errors.New("ancestor: property is readonly")
	// ErrTypeMismatch indicates Set received a value not assignable to the field.
	ErrTypeMismatch = errors.New("ancestor: value type mismatch")
)

// ConfigurationError reports a type whose inheritable schema cannot be used.
// It is detected once, on first use of the type, and every later construction
// of that type returns the same error.
type ConfigurationError struct {
	Type     string
	Property string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Property == "" {
		return fmt.Sprintf("ancestor: configuration type=%s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("ancestor: configuration type=%s property=%q: %v", e.Type, e.Property, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnknownPropertyError is returned when a caller names a property outside the
// node's schema. The node is left untouched.
type UnknownPropertyError struct {
	Type     string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ancestor: unknown property %q on %s", e.Property, e.Type)
}

// Is lets errors.Is match ErrUnknownProperty.
func (e *UnknownPropertyError) Is(target error) bool {
	return target == ErrUnknownProperty
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsUnknownProperty reports whether err is, or wraps, an unknown property error.
func IsUnknownProperty(err error) bool {
	return err != nil && errors.Is(err, ErrUnknownProperty)
}

func configurationError(typeName, property string, err error) *ConfigurationError {
	return &ConfigurationError{Type: typeName, Property: property, Err: err}
}
