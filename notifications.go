package ancestor

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goliatone/go-ancestor/pkg/activity"
)

var errNilObserver = errors.New("ancestor: nil observer")

// Change describes a change of the resolved value of one property.
type Change struct {
	Property string
	Previous any
	Current  any
	// Inherited is true when the change was re-emitted from an ancestor.
	Inherited bool
	// Source is the ID of the node where the change originated.
	Source string
}

// ObserverFunc receives changes. It is called without engine locks held and
// may read or write nodes.
type ObserverFunc func(Change)

// CancelFunc removes an observer. Calling it more than once is harmless.
type CancelFunc func()

type observer struct {
	id uint64
	fn ObserverFunc
}

// Observe registers fn for changes of name on n, including changes forwarded
// from the ancestor when n inherits notifications.
func (n *Node) Observe(name string, fn ObserverFunc) (CancelFunc, error) {
	if !n.initialized() {
		return nil, ErrNotInitialized
	}
	if fn == nil {
		return nil, errNilObserver
	}
	if n.info.accessor(name) == nil {
		return nil, &UnknownPropertyError{Type: n.info.name, Property: name}
	}
	return n.subscribe(name, fn), nil
}

func (n *Node) subscribe(name string, fn ObserverFunc) CancelFunc {
	n.obsMu.Lock()
	if n.observers == nil {
		n.observers = map[string][]*observer{}
	}
	n.nextObserver++
	id := n.nextObserver
	n.observers[name] = append(n.observers[name], &observer{id: id, fn: fn})
	n.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(name, id) })
	}
}

func (n *Node) unsubscribe(name string, id uint64) {
	n.obsMu.Lock()
	defer n.obsMu.Unlock()
	list := slices.DeleteFunc(n.observers[name], func(o *observer) bool { return o.id == id })
	if len(list) == 0 {
		delete(n.observers, name)
		return
	}
	n.observers[name] = list
}

func (n *Node) observerCount(name string) int {
	n.obsMu.RLock()
	defer n.obsMu.RUnlock()
	return len(n.observers[name])
}

// emit publishes change to the activity hooks and then to observers, which
// include the links of forwarding descendants.
func (n *Node) emit(change Change) {
	n.publish(change)

	n.obsMu.RLock()
	list := slices.Clone(n.observers[change.Property])
	n.obsMu.RUnlock()

	for _, o := range list {
		o.fn(change)
	}
}

func (n *Node) publish(change Change) {
	if !n.cfg.emitter.Enabled() {
		return
	}
	event := activity.BuildPropertyChangedEvent(activity.PropertyChange{
		ActorID:   n.cfg.actorID,
		NodeID:    n.id,
		TypeName:  n.info.name,
		Property:  change.Property,
		Previous:  change.Previous,
		Current:   change.Current,
		Inherited: change.Inherited,
		SourceID:  change.Source,
	})
	if err := n.cfg.emitter.Emit(context.Background(), event); err != nil {
		n.cfg.logger.Log(LogEvent{
			Kind:     LogHookFailed,
			Type:     n.info.name,
			NodeID:   n.id,
			Property: change.Property,
			Err:      err,
		})
	}
}

// linkSet holds the observation links a descendant keeps on its ancestor.
// It must not reference the descendant itself.
type linkSet struct {
	mu     sync.Mutex
	parent *Node
	active map[string]CancelFunc
	closed bool
}

func newLinkSet(parent *Node) *linkSet {
	return &linkSet{parent: parent, active: map[string]CancelFunc{}}
}

func (ls *linkSet) has(name string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	_, ok := ls.active[name]
	return ok
}

// ensure installs a link for name unless one exists or the set is closed.
func (ls *linkSet) ensure(name string, fn ObserverFunc) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return false
	}
	if _, ok := ls.active[name]; ok {
		return false
	}
	ls.active[name] = ls.parent.subscribe(name, fn)
	return true
}

func (ls *linkSet) drop(name string) bool {
	ls.mu.Lock()
	cancel, ok := ls.active[name]
	delete(ls.active, name)
	ls.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (ls *linkSet) closeAll() {
	ls.mu.Lock()
	active := ls.active
	ls.active = map[string]CancelFunc{}
	ls.closed = true
	ls.mu.Unlock()
	for _, cancel := range active {
		cancel()
	}
}

// refreshLink installs or drops the link for name so that a link exists
// exactly while name is inherited.
func (n *Node) refreshLink(name string) {
	if n.links == nil {
		return
	}
	if !n.IsInherited(name) || n.ancestor.info.accessor(name) == nil {
		if n.links.drop(name) {
			n.cfg.logger.Log(LogEvent{Kind: LogLinkDropped, Type: n.info.name, NodeID: n.id, Property: name})
		}
		return
	}
	if n.links.ensure(name, linkObserver(n.alive, n.links, name)) {
		n.cfg.logger.Log(LogEvent{Kind: LogLinkInstalled, Type: n.info.name, NodeID: n.id, Property: name})
	}
}

// linkObserver builds the observer registered on the ancestor. It reaches the
// descendant only through alive so the ancestor never keeps it reachable.
func linkObserver(alive func() *Node, ls *linkSet, name string) ObserverFunc {
	return func(change Change) {
		d := alive()
		if d == nil {
			ls.drop(name)
			return
		}
		d.forward(name, change)
	}
}

// forward re-emits change while name is inherited. A change that arrives
// while name is shadowed is suppressed; the link stays so that forwarding
// resumes once the field is cleared, even by plain assignment.
func (n *Node) forward(name string, change Change) {
	if !n.IsInherited(name) {
		n.cfg.recorder.ChangeSuppressed(name)
		n.cfg.logger.Log(LogEvent{Kind: LogChangeSuppressed, Type: n.info.name, NodeID: n.id, Property: name})
		return
	}
	n.cfg.recorder.ChangeForwarded(name)
	n.cfg.logger.Log(LogEvent{Kind: LogChangeForwarded, Type: n.info.name, NodeID: n.id, Property: name})
	n.emit(Change{
		Property:  name,
		Previous:  change.Previous,
		Current:   change.Current,
		Inherited: true,
		Source:    change.Source,
	})
}
