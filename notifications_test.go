package ancestor

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/goliatone/go-ancestor/pkg/activity"
)

func TestObserveLocalSet(t *testing.T) {
	p := newRoot(t, "", "Doe")
	var log changeLog
	cancel := log.observe(t, &p.Node, "lastName")

	if err := p.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 1 {
		t.Fatalf("expected one change, got %d", len(log.changes))
	}
	c := log.changes[0]
	if c.Property != "lastName" || c.Inherited || c.Source != p.ID() {
		t.Fatalf("unexpected change: %+v", c)
	}
	if deref(t, c.Previous) != "Doe" || deref(t, c.Current) != "Smith" {
		t.Fatalf("unexpected values: %+v", c)
	}

	cancel()
	cancel()
	if err := p.Set("lastName", str("Brown")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 1 {
		t.Fatalf("cancelled observer must not fire")
	}
}

func TestObserveValidation(t *testing.T) {
	p := newRoot(t, "", "")
	if _, err := p.Observe("missing", func(Change) {}); !IsUnknownProperty(err) {
		t.Fatalf("expected unknown property, got %v", err)
	}
	if _, err := p.Observe("lastName", nil); err == nil {
		t.Fatalf("expected nil observer error")
	}
	if _, err := p.Observe("age", func(Change) {}); err != nil {
		t.Fatalf("declared scalar properties are observable: %v", err)
	}
	var zero Node
	if _, err := zero.Observe("lastName", func(Change) {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestForwardingAcrossChain(t *testing.T) {
	root := newRoot(t, "", "Doe")
	mid := MustNew[testPerson](root, true)
	leaf := MustNew[testPerson](mid, true)
	var midLog, leafLog changeLog
	midLog.observe(t, &mid.Node, "lastName")
	leafLog.observe(t, &leaf.Node, "lastName")

	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(midLog.changes) != 1 || len(leafLog.changes) != 1 {
		t.Fatalf("expected cascade, got mid=%d leaf=%d", len(midLog.changes), len(leafLog.changes))
	}
	for _, c := range []Change{midLog.changes[0], leafLog.changes[0]} {
		if !c.Inherited || c.Source != root.ID() {
			t.Fatalf("unexpected forwarded change: %+v", c)
		}
		if deref(t, c.Previous) != "Doe" || deref(t, c.Current) != "Smith" {
			t.Fatalf("unexpected forwarded values: %+v", c)
		}
	}

	if err := mid.Set("lastName", str("Mid")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(leafLog.changes) != 2 || leafLog.changes[1].Source != mid.ID() {
		t.Fatalf("leaf must see mid's own change, got %+v", leafLog.changes)
	}
	if err := root.Set("lastName", str("Root")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(midLog.changes) != 2 || len(leafLog.changes) != 2 {
		t.Fatalf("changes shadowed by mid must stop there, mid=%d leaf=%d", len(midLog.changes), len(leafLog.changes))
	}
}

func TestForwardingDisabled(t *testing.T) {
	root := newRoot(t, "", "Doe")
	child := MustNew[testPerson](root, false)
	var log changeLog
	log.observe(t, &child.Node, "lastName")

	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 0 {
		t.Fatalf("forwarding disabled, got %+v", log.changes)
	}
	if root.observerCount("lastName") != 0 {
		t.Fatalf("no link may be installed without forwarding")
	}
	if got := deref(t, child.Value("lastName")); got != "Smith" {
		t.Fatalf("reads still inherit, got %s", got)
	}
}

func TestLinkDroppedWhenSetLocallyAndReinstalled(t *testing.T) {
	root := newRoot(t, "", "Doe")
	child := MustNew[testPerson](root, true)
	var log changeLog
	log.observe(t, &child.Node, "lastName")

	if !child.links.has("lastName") {
		t.Fatalf("expected link for inherited property")
	}
	if err := child.Set("lastName", str("Local")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if child.links.has("lastName") {
		t.Fatalf("link must be dropped once the property is set locally")
	}
	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 1 {
		t.Fatalf("only the local set may be observed, got %+v", log.changes)
	}

	if err := child.Set("lastName", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !child.links.has("lastName") {
		t.Fatalf("link must be reinstalled after clearing the local value")
	}
	if err := root.Set("lastName", str("Brown")); err != nil {
		t.Fatalf("set: %v", err)
	}
	last := log.changes[len(log.changes)-1]
	if !last.Inherited || deref(t, last.Current) != "Brown" {
		t.Fatalf("expected forwarded change after reinstall, got %+v", last)
	}
}

func TestShadowedLinkSuppressesAndResumesAfterDirectClear(t *testing.T) {
	root := newRoot(t, "", "Doe")
	child := MustNew[testPerson](root, true)
	var log changeLog
	log.observe(t, &child.Node, "lastName")

	// plain assignment does not refresh the link
	child.LastName = str("Direct")
	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 0 {
		t.Fatalf("shadowed property must not forward, got %+v", log.changes)
	}
	if !child.links.has("lastName") {
		t.Fatalf("link must survive a suppressed change")
	}

	child.LastName = nil
	if !child.IsInherited("lastName") {
		t.Fatalf("expected lastName inherited after clearing the field")
	}
	if err := root.Set("lastName", str("Brown")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 1 {
		t.Fatalf("forwarding must resume, got %+v", log.changes)
	}
	c := log.changes[0]
	if !c.Inherited || deref(t, c.Previous) != "Smith" || deref(t, c.Current) != "Brown" || c.Source != root.ID() {
		t.Fatalf("unexpected forwarded change: %+v", c)
	}
}

func TestCloseStopsForwarding(t *testing.T) {
	root := newRoot(t, "", "Doe")
	child := MustNew[testPerson](root, true)
	var log changeLog
	log.observe(t, &child.Node, "lastName")

	if err := child.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := child.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if root.observerCount("lastName") != 0 {
		t.Fatalf("close must remove links from the ancestor")
	}
	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(log.changes) != 0 {
		t.Fatalf("closed node must not forward")
	}
	child.ResumeInheriting("lastName")
	if err := child.Set("lastName", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if child.links.has("lastName") {
		t.Fatalf("closed node must not reinstall links")
	}
}

func TestCollectedDescendantReleasesLinks(t *testing.T) {
	root := newRoot(t, "", "Doe")
	func() {
		child := MustNew[testPerson](root, true)
		if root.observerCount("lastName") != 1 {
			t.Fatalf("expected link on ancestor")
		}
		_ = child
	}()

	deadline := time.Now().Add(2 * time.Second)
	for root.observerCount("lastName") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("links of a collected descendant were not released")
		}
		runtime.GC()
		if err := root.Set("lastName", str("Smith")); err != nil {
			t.Fatalf("set: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestObserversMayMutateNodes(t *testing.T) {
	root := newRoot(t, "", "Doe")
	child := MustNew[testPerson](root, true)
	_, err := child.Observe("lastName", func(c Change) {
		if c.Inherited {
			_ = child.Set("firstName", str("Reacted"))
		}
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := deref(t, child.Value("firstName")); got != "Reacted" {
		t.Fatalf("observer write lost, got %s", got)
	}
}

func TestActivityHooksReceiveChanges(t *testing.T) {
	capture := &activity.CaptureHook{}
	root := newRoot(t, "", "Doe",
		WithActivityHooks(activity.Hooks{capture, nil}),
		WithActivityChannel("people"),
		WithActor("actor-1"),
	)
	child := MustNew[testPerson](root, true)

	if err := root.Set("lastName", str("Smith")); err != nil {
		t.Fatalf("set: %v", err)
	}
	events := capture.Events()
	if len(events) != 2 {
		t.Fatalf("expected local and inherited events, got %d", len(events))
	}
	if events[0].Verb != activity.VerbPropertyChanged || events[0].ObjectID != root.ID() {
		t.Fatalf("unexpected root event: %+v", events[0])
	}
	if events[1].Verb != activity.VerbPropertyInheritedChanged || events[1].ObjectID != child.ID() {
		t.Fatalf("unexpected child event: %+v", events[1])
	}
	for _, e := range events {
		if e.Channel != "people" || e.ActorID != "actor-1" || e.Metadata["property"] != "lastName" {
			t.Fatalf("unexpected event fields: %+v", e)
		}
	}
	if events[1].Metadata["source_id"] != root.ID() {
		t.Fatalf("expected source_id on inherited event, got %v", events[1].Metadata)
	}
}

func TestActivityHookFailureIsLogged(t *testing.T) {
	var logged []LogEvent
	boom := errors.New("sink down")
	p := newRoot(t, "", "",
		WithActivityHooks(activity.Hooks{&activity.CaptureHook{Err: boom}}),
		WithLogger(LoggerFunc(func(e LogEvent) { logged = append(logged, e) })),
	)
	if err := p.Set("lastName", str("Doe")); err != nil {
		t.Fatalf("hook failures must not fail Set: %v", err)
	}
	var found bool
	for _, e := range logged {
		if e.Kind == LogHookFailed && errors.Is(e.Err, boom) && e.Property == "lastName" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hook failure log, got %+v", logged)
	}
}
