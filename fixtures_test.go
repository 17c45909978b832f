package ancestor

import (
	"reflect"
	"testing"
)

type testPerson struct {
	Node
	FirstName *string
	LastName  *string
	Address   map[string]string `ancestor:"address,copy"`
	Nicknames []string          `ancestor:",noinherit"`
	Badge     *string           `ancestor:"badge,readonly"`
	Age       int
	Secret    string `ancestor:"-"`
	internal  *string
}

type testEmployee struct {
	testPerson
	Company *string
	Salary  *int `ancestor:"salary,noinherit"`
}

// testPrivatePerson keeps its last name to itself.
type testPrivatePerson struct {
	Node
	FirstName *string
	LastName  *string
}

func (*testPrivatePerson) PropertiesPassedToDescendants(_, inherited Schema) Schema {
	return inherited.Without("lastName")
}

type testScalarTag struct {
	Node
	Age int `ancestor:"age,inherit"`
}

type testScalarSchema struct {
	Node
	Name *string
	Age  int
}

func (*testScalarSchema) PropertiesPassedToDescendants(declared, inherited Schema) Schema {
	age, _ := declared.Lookup("age")
	return inherited.Include(age)
}

type testGhostSchema struct {
	Node
	Name *string
}

func (*testGhostSchema) PropertiesPassedToDescendants(_, inherited Schema) Schema {
	field, _ := reflect.TypeFor[struct{ Ghost *string }]().FieldByName("Ghost")
	ghost, _ := DescribeField(field)
	return inherited.Include(ghost)
}

func str(s string) *string { return &s }

func deref(t *testing.T, v any) string {
	t.Helper()
	if v == nil {
		return "<nil>"
	}
	p, ok := v.(*string)
	if !ok {
		t.Fatalf("value %v is %T, want *string", v, v)
	}
	if p == nil {
		return "<nil>"
	}
	return *p
}

func newRoot(t *testing.T, first, last string, opts ...Option) *testPerson {
	t.Helper()
	p, err := New[testPerson](nil, false, opts...)
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	if first != "" {
		p.FirstName = str(first)
	}
	if last != "" {
		p.LastName = str(last)
	}
	return p
}

type changeLog struct {
	changes []Change
}

func (l *changeLog) observe(t *testing.T, n *Node, name string) CancelFunc {
	t.Helper()
	cancel, err := n.Observe(name, func(c Change) { l.changes = append(l.changes, c) })
	if err != nil {
		t.Fatalf("observe %s: %v", name, err)
	}
	return cancel
}
