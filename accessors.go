package ancestor

import (
	"fmt"
	"reflect"
)

// accessor is the per-type read/write entry for one declared attribute. The
// table is installed once per type together with its schema; inheritable
// entries carry the fallback read.
type accessor struct {
	desc        PropertyDescriptor
	index       []int
	inheritable bool
}

func installAccessors(fields []declaredField, schema Schema) map[string]*accessor {
	accessors := make(map[string]*accessor, len(fields))
	for _, f := range fields {
		accessors[f.desc.name] = &accessor{
			desc:        f.desc,
			index:       f.index,
			inheritable: schema.Has(f.desc.name),
		}
	}
	return accessors
}

func (a *accessor) field(owner reflect.Value) reflect.Value {
	return owner.Elem().FieldByIndex(a.index)
}

// load returns the locally stored value. Reference attributes holding nil are
// unset; scalar attributes are always set.
func (a *accessor) load(owner reflect.Value) (any, bool) {
	field := a.field(owner)
	if a.desc.kind == KindReference || a.desc.kind == KindFunc {
		if field.IsNil() {
			return nil, false
		}
	}
	return field.Interface(), true
}

// prepare converts value into something assignable to the field, applying the
// copy semantics of the descriptor. nil clears the field.
func (a *accessor) prepare(value any) (reflect.Value, error) {
	ft := a.desc.typ
	if value == nil {
		return reflect.Zero(ft), nil
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(ft) {
		return reflect.Value{}, fmt.Errorf("%w: %s wants %s, got %s", ErrTypeMismatch, a.desc.name, ft, rv.Type())
	}
	if a.desc.copy {
		rv = shallowCopy(rv)
	}
	out := reflect.New(ft).Elem()
	out.Set(rv)
	return out, nil
}

func shallowCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(v.Elem())
		return clone
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), iter.Value())
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(clone, v)
		return clone
	default:
		return v
	}
}

// hop is one consultation along the ancestor chain.
type hop struct {
	node        *Node
	declared    bool
	local       bool
	overridden  bool
	inheritable bool
	value       any
}

// walk consults n and then its ancestors until a value is found or the chain
// ends, calling visit for each consulted node. Each node is read-locked only
// while its own state is inspected.
func (n *Node) walk(name string, visit func(hop)) (any, int) {
	depth := 0
	for cur := n; cur != nil; depth++ {
		acc := cur.info.accessor(name)
		if acc == nil {
			if visit != nil {
				visit(hop{node: cur})
			}
			return nil, depth
		}
		cur.mu.RLock()
		value, ok := acc.load(cur.owner)
		_, overridden := cur.overrides[name]
		next := cur.ancestor
		cur.mu.RUnlock()

		if visit != nil {
			visit(hop{
				node:        cur,
				declared:    true,
				local:       ok,
				overridden:  overridden,
				inheritable: acc.inheritable,
				value:       value,
			})
		}
		if ok {
			return value, depth
		}
		if !acc.inheritable || overridden || next == nil {
			return nil, depth
		}
		cur = next
	}
	return nil, depth
}

// current is resolve without recording a read.
func (n *Node) current(name string) any {
	value, _ := n.walk(name, nil)
	return value
}

// resolve returns the value read through the chain.
func (n *Node) resolve(name string) any {
	value, depth := n.walk(name, nil)
	n.cfg.recorder.ObserveResolution(name, depth)
	return value
}
