// Package hydrate converts loosely typed values, such as expression results or
// decoded documents, into the Go types of struct fields.
package hydrate

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// PreHook rewrites a value before it is converted. Returning nil clears the
// property.
type PreHook func(name string, value any) (any, error)

// Option configures a Decoder.
type Option func(*Decoder)

// Decoder converts values into a target type.
type Decoder struct {
	preHooks        []PreHook
	disallowUnknown bool
	useNumber       bool
}

// WithPreHook runs hook before conversion.
func WithPreHook(hook PreHook) Option {
	return func(d *Decoder) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithDisallowUnknownFields rejects object keys with no matching struct field.
func WithDisallowUnknownFields() Option {
	return func(d *Decoder) {
		d.disallowUnknown = true
	}
}

// WithUseNumber decodes numbers held in interface values as json.Number.
func WithUseNumber() Option {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// New returns a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts value into target. Values already assignable are returned
// as is; anything else is re-encoded and decoded into a fresh target value.
func (d *Decoder) Decode(name string, value any, target reflect.Type) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, fmt.Errorf("hydrate: %s: target type is nil", name)
	}
	for _, hook := range d.preHooks {
		next, err := hook(name, value)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("hydrate: %s: pre-hook failed: %w", name, err)
		}
		value = next
	}
	if value == nil {
		return reflect.Zero(target), nil
	}
	if rv := reflect.ValueOf(value); rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}

	buffer, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("hydrate: %s: encode: %w", name, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.disallowUnknown {
		decoder.DisallowUnknownFields()
	}
	if d.useNumber {
		decoder.UseNumber()
	}
	out := reflect.New(target)
	if err := decoder.Decode(out.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("hydrate: %s: decode into %s: %w", name, target, err)
	}
	return out.Elem(), nil
}
