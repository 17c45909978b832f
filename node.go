package ancestor

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"weak"

	"github.com/google/uuid"

	"github.com/goliatone/go-ancestor/internal/graphcycle"
)

// Inheritor is implemented by every struct that embeds Node.
type Inheritor interface {
	ancestorNode() *Node
}

// Pointer constrains constructors to pointers of structs embedding Node.
type Pointer[T any] interface {
	*T
	Inheritor
}

// Node is the inheritance controller. Embed it (by value) in a struct; the
// struct's exported pointer, interface, map and slice fields then fall back to
// the ancestor's resolved values while unset.
//
// The ancestor and the notification flag are fixed by Init and never change.
type Node struct {
	id                    string
	owner                 reflect.Value
	info                  *typeInfo
	ancestor              *Node
	inheritsNotifications bool
	cfg                   nodeConfig
	alive                 func() *Node

	mu        sync.RWMutex
	overrides map[string]struct{}

	obsMu        sync.RWMutex
	observers    map[string][]*observer
	nextObserver uint64

	links *linkSet
}

func (n *Node) ancestorNode() *Node { return n }

// NodeOf returns the Node embedded in x, or nil.
func NodeOf(x Inheritor) *Node {
	if isNilInheritor(x) {
		return nil
	}
	return x.ancestorNode()
}

func isNilInheritor(x Inheritor) bool {
	if x == nil {
		return true
	}
	rv := reflect.ValueOf(x)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Init binds x to anc. anc may be nil, making x a terminal node. When
// inheritsNotifications is true, x re-emits changes of the values it inherits.
func Init[T any, PT Pointer[T]](x PT, anc Inheritor, inheritsNotifications bool, opts ...Option) error {
	if x == nil {
		return fmt.Errorf("%w: nil target", ErrNotInitialized)
	}
	n := x.ancestorNode()
	parent := NodeOf(anc)
	typeName := reflect.TypeFor[T]().String()

	if err := checkChain(n, parent); err != nil {
		return configurationError(typeName, "", fmt.Errorf("%w: %v", ErrCyclicChain, err))
	}
	if parent != nil && !parent.initialized() {
		return fmt.Errorf("%w: ancestor of %s", ErrNotInitialized, typeName)
	}

	base := defaultConfig()
	if parent != nil {
		base = parent.cfg
	}
	cfg := applyOptions(base, opts)

	info := lookupType(reflect.TypeFor[T](), &cfg)
	if info.err != nil {
		return info.err
	}

	n.mu.Lock()
	if n.info != nil {
		n.mu.Unlock()
		return ErrAlreadyInitialized
	}
	n.id = uuid.NewString()
	n.owner = reflect.ValueOf(x)
	n.info = info
	n.ancestor = parent
	n.inheritsNotifications = inheritsNotifications
	n.cfg = cfg
	n.overrides = map[string]struct{}{}
	n.mu.Unlock()

	if inheritsNotifications && parent != nil {
		ref := weak.Make((*T)(x))
		n.alive = func() *Node {
			if p := ref.Value(); p != nil {
				return PT(p).ancestorNode()
			}
			return nil
		}
		n.links = newLinkSet(parent)
		runtime.AddCleanup((*T)(x), func(ls *linkSet) { ls.closeAll() }, n.links)
		for _, name := range info.schema.Names() {
			n.refreshLink(name)
		}
	}
	return nil
}

func checkChain(n, parent *Node) error {
	if parent == nil {
		return nil
	}
	return graphcycle.Detect(graphcycle.Config[*Node]{
		Starts: []*Node{n},
		Next: func(cur *Node) []*Node {
			next := cur.ancestor
			if cur == n {
				next = parent
			}
			if next == nil {
				return nil
			}
			return []*Node{next}
		},
	})
}

// New allocates a T bound to anc.
func New[T any, PT Pointer[T]](anc Inheritor, inheritsNotifications bool, opts ...Option) (PT, error) {
	x := PT(new(T))
	if err := Init[T, PT](x, anc, inheritsNotifications, opts...); err != nil {
		return nil, err
	}
	return x, nil
}

// MustNew is New that panics on error.
func MustNew[T any, PT Pointer[T]](anc Inheritor, inheritsNotifications bool, opts ...Option) PT {
	x, err := New[T, PT](anc, inheritsNotifications, opts...)
	if err != nil {
		panic(err)
	}
	return x
}

// DescendantOf allocates a T bound to anc with notification forwarding
// always enabled, whatever anc's own setting.
func DescendantOf[T any, PT Pointer[T]](anc Inheritor, opts ...Option) (PT, error) {
	return New[T, PT](anc, true, opts...)
}

// Descendant allocates a new instance of parent's type whose ancestor is
// parent, copying parent's notification setting.
func Descendant[T any, PT Pointer[T]](parent PT, opts ...Option) (PT, error) {
	node := NodeOf(parent)
	if node == nil || !node.initialized() {
		return nil, fmt.Errorf("%w: descendant parent", ErrNotInitialized)
	}
	return New[T, PT](parent, node.inheritsNotifications, opts...)
}

// MustDescendant is Descendant that panics on error.
func MustDescendant[T any, PT Pointer[T]](parent PT, opts ...Option) PT {
	x, err := Descendant[T, PT](parent, opts...)
	if err != nil {
		panic(err)
	}
	return x
}

// DescendantInheriting is Descendant with an explicit notification setting.
func DescendantInheriting[T any, PT Pointer[T]](parent PT, inheritsNotifications bool, opts ...Option) (PT, error) {
	node := NodeOf(parent)
	if node == nil || !node.initialized() {
		return nil, fmt.Errorf("%w: descendant parent", ErrNotInitialized)
	}
	return New[T, PT](parent, inheritsNotifications, opts...)
}

func (n *Node) initialized() bool {
	return n != nil && n.info != nil
}

// ID returns the node identifier assigned at Init.
func (n *Node) ID() string {
	if n == nil {
		return ""
	}
	return n.id
}

// TypeName returns the Go type name of the owning struct.
func (n *Node) TypeName() string {
	if !n.initialized() {
		return ""
	}
	return n.info.name
}

// Ancestor returns the ancestor node, or nil for a terminal node.
func (n *Node) Ancestor() *Node {
	if n == nil {
		return nil
	}
	return n.ancestor
}

// Owner returns the struct pointer embedding n.
func (n *Node) Owner() any {
	if !n.initialized() {
		return nil
	}
	return n.owner.Interface()
}

// InheritsNotifications reports whether n forwards inherited value changes.
func (n *Node) InheritsNotifications() bool {
	return n != nil && n.inheritsNotifications
}

// Schema returns the properties n passes to, and inherits from, the chain.
func (n *Node) Schema() Schema {
	if !n.initialized() {
		return Schema{}
	}
	return n.info.schema
}

// Declared returns every declared attribute of n's type, inheritable or not.
func (n *Node) Declared() Schema {
	if !n.initialized() {
		return Schema{}
	}
	return n.info.declared
}

// Depth returns the number of ancestors above n.
func (n *Node) Depth() int {
	depth := 0
	if n == nil {
		return 0
	}
	for cur := n.ancestor; cur != nil; cur = cur.ancestor {
		depth++
	}
	return depth
}

// Value returns the resolved value of name: the local value when set,
// otherwise the ancestor's resolved value while the property is inherited.
// It returns nil when nothing resolves or name is not declared.
func (n *Node) Value(name string) any {
	if !n.initialized() {
		return nil
	}
	return n.resolve(name)
}

// Get returns the resolved value of name on x as V, or V's zero value.
func Get[V any](x Inheritor, name string) V {
	var zero V
	node := NodeOf(x)
	if node == nil {
		return zero
	}
	value, ok := node.Value(name).(V)
	if !ok {
		return zero
	}
	return value
}

// LocalValue returns the locally stored value of name, ignoring the chain.
func (n *Node) LocalValue(name string) (any, bool) {
	if !n.initialized() {
		return nil, false
	}
	acc := n.info.accessor(name)
	if acc == nil {
		return nil, false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return acc.load(n.owner)
}

// IsInherited reports whether reads of name are currently satisfied by the
// ancestor chain: name is in the schema, unset locally, not overridden, and n
// has an ancestor.
func (n *Node) IsInherited(name string) bool {
	if !n.initialized() || n.ancestor == nil {
		return false
	}
	acc := n.info.accessor(name)
	if acc == nil || !acc.inheritable {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, overridden := n.overrides[name]; overridden {
		return false
	}
	_, set := acc.load(n.owner)
	return !set
}

// Set stores value locally and notifies observers of n. A nil value clears
// the local value so the property may be inherited again.
func (n *Node) Set(name string, value any) error {
	if !n.initialized() {
		return ErrNotInitialized
	}
	acc := n.info.accessor(name)
	if acc == nil {
		return &UnknownPropertyError{Type: n.info.name, Property: name}
	}
	if acc.desc.readonly {
		return fmt.Errorf("%w: %s", ErrReadonlyProperty, name)
	}
	rv, err := acc.prepare(value)
	if err != nil {
		return err
	}

	previous := n.current(name)
	n.mu.Lock()
	acc.field(n.owner).Set(rv)
	n.mu.Unlock()

	n.refreshLink(name)
	n.emit(Change{
		Property: name,
		Previous: previous,
		Current:  n.current(name),
		Source:   n.id,
	})
	return nil
}

// Snapshot returns the resolved value of every declared property that
// resolves to a non-nil value.
func (n *Node) Snapshot() map[string]any {
	if !n.initialized() {
		return nil
	}
	out := make(map[string]any, n.info.declared.Len())
	for _, name := range n.info.declared.Names() {
		if value := n.Value(name); value != nil {
			out[name] = value
		}
	}
	return out
}

// Close tears down the observation links n holds on its ancestor. Observers
// registered on n itself stay in place. Close is idempotent.
func (n *Node) Close() error {
	if !n.initialized() {
		return nil
	}
	if n.links != nil {
		n.links.closeAll()
	}
	return nil
}

var errNotOwner = errors.New("ancestor: owner type mismatch")

// OwnerAs returns the owner of n as PT.
func OwnerAs[T any, PT Pointer[T]](n *Node) (PT, error) {
	if !n.initialized() {
		return nil, ErrNotInitialized
	}
	x, ok := n.owner.Interface().(PT)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotOwner, n.info.name)
	}
	return x, nil
}
