package ancestor

import (
	"reflect"
	"sort"
)

// StopInheriting makes reads of name on n ignore the ancestor chain. A
// locally set value is still returned. name must be in n's schema.
func (n *Node) StopInheriting(name string) error {
	if !n.initialized() {
		return ErrNotInitialized
	}
	if !n.info.schema.Has(name) {
		return &UnknownPropertyError{Type: n.info.name, Property: name}
	}

	previous := n.current(name)
	n.mu.Lock()
	_, already := n.overrides[name]
	n.overrides[name] = struct{}{}
	n.mu.Unlock()
	if already {
		return nil
	}

	n.refreshLink(name)
	n.emitIfChanged(name, previous)
	return nil
}

// ResumeInheriting removes an override set by StopInheriting. Unknown or
// non-overridden names are ignored.
func (n *Node) ResumeInheriting(name string) {
	if !n.initialized() {
		return
	}

	previous := n.current(name)
	n.mu.Lock()
	_, overridden := n.overrides[name]
	delete(n.overrides, name)
	n.mu.Unlock()
	if !overridden {
		return
	}

	n.refreshLink(name)
	n.emitIfChanged(name, previous)
}

// OverriddenProperties returns the sorted names n no longer inherits.
func (n *Node) OverriddenProperties() []string {
	if !n.initialized() {
		return nil
	}
	n.mu.RLock()
	names := make([]string, 0, len(n.overrides))
	for name := range n.overrides {
		names = append(names, name)
	}
	n.mu.RUnlock()
	sort.Strings(names)
	return names
}

// IsOverridden reports whether StopInheriting is in effect for name.
func (n *Node) IsOverridden(name string) bool {
	if !n.initialized() {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.overrides[name]
	return ok
}

func (n *Node) emitIfChanged(name string, previous any) {
	current := n.current(name)
	if sameValue(previous, current) {
		return
	}
	n.emit(Change{
		Property: name,
		Previous: previous,
		Current:  current,
		Source:   n.id,
	})
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
