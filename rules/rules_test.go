package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-ancestor"
)

type person struct {
	ancestor.Node
	FirstName *string
	LastName  *string
	Nicknames []string
	Age       int
}

func strptr(s string) *string { return &s }

func family(t *testing.T) (*person, *person) {
	t.Helper()
	john, err := ancestor.New[person](nil, false)
	if err != nil {
		t.Fatalf("new john: %v", err)
	}
	john.FirstName = strptr("John")
	john.LastName = strptr("Doe")
	jack, err := ancestor.DescendantOf[person](john)
	if err != nil {
		t.Fatalf("new jack: %v", err)
	}
	jack.FirstName = strptr("Jack")
	return john, jack
}

func TestContextForDereferencesResolvedValues(t *testing.T) {
	_, jack := family(t)
	ctx := ContextFor(&jack.Node)

	if ctx.Values["firstName"] != "Jack" {
		t.Fatalf("firstName = %v", ctx.Values["firstName"])
	}
	if ctx.Values["lastName"] != "Doe" {
		t.Fatalf("expected inherited lastName, got %v", ctx.Values["lastName"])
	}
	if v, ok := ctx.Values["nicknames"]; !ok || v != nil {
		t.Fatalf("expected unresolved nicknames present as nil, got %v (%v)", v, ok)
	}
	if ctx.Values["age"] != 0 {
		t.Fatalf("age = %v", ctx.Values["age"])
	}
	if ctx.NodeID != jack.ID() || ctx.Type == "" {
		t.Fatalf("unexpected node metadata: %+v", ctx)
	}
}

func TestEvaluateDerivesFullName(t *testing.T) {
	john, jack := family(t)

	got, err := EvaluateString(nil, &jack.Node, `firstName + " " + lastName`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "Jack Doe" {
		t.Fatalf("full name = %q", got)
	}

	john.Set("lastName", strptr("Smith"))
	got, err = EvaluateString(NewExprEngine(), &jack.Node, `firstName + " " + lastName`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "Jack Smith" {
		t.Fatalf("full name after ancestor change = %q", got)
	}
}

func TestExprEngineUsesCacheAndFunctions(t *testing.T) {
	_, jack := family(t)
	cache := NewMemoryCache()
	registry := NewFunctionRegistry().MustRegister("upper", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	})
	engine := NewExprEngine(WithProgramCache(cache), WithFunctions(registry))

	for range 2 {
		got, err := EvaluateString(engine, &jack.Node, `upper(lastName)`)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got != "DOE" {
			t.Fatalf("upper(lastName) = %q", got)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
}

func TestExprProgramEvaluatesAcrossNodes(t *testing.T) {
	john, jack := family(t)
	program, err := NewExprEngine().Compile(`node.id + ":" + firstName`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, p := range []*person{john, jack} {
		got, err := program.Evaluate(ContextFor(&p.Node))
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		want := p.ID() + ":" + *p.FirstName
		if got != want {
			t.Fatalf("got %v, want %s", got, want)
		}
	}
}

func TestCELEngineEvaluates(t *testing.T) {
	_, jack := family(t)
	registry := NewFunctionRegistry().MustRegister("initial", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		if s == "" {
			return "", nil
		}
		return s[:1], nil
	})
	engine := NewCELEngine(WithFunctions(registry), WithProgramCache(NewMemoryCache()))

	got, err := EvaluateString(engine, &jack.Node, `initial(firstName) + ". " + lastName`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "J. Doe" {
		t.Fatalf("got %q", got)
	}

	ok, err := Evaluate(engine, &jack.Node, `nicknames == null`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ok != true {
		t.Fatalf("expected unresolved nicknames to be null, got %v", ok)
	}
}

func TestCELCompileRejectsSyntaxErrors(t *testing.T) {
	if _, err := NewCELEngine().Compile(`firstName +`); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestEvaluateWrapsErrors(t *testing.T) {
	_, jack := family(t)

	_, err := Evaluate(nil, &jack.Node, "")
	if !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}

	_, err = Evaluate(NewExprEngine(), &jack.Node, `firstName +`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.NodeID != jack.ID() {
		t.Fatalf("unexpected metadata: %+v", evalErr)
	}

	_, err = EvaluateString(nil, &jack.Node, `1 + 1`)
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError for non-string result, got %v", err)
	}
}

func TestWrapEvaluationErrorFillsBlanksOnly(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "node-1", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.NodeID != "node-1" {
		t.Fatalf("blank fields should be filled: %+v", existing)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := registry.Register("f", nil); err == nil {
		t.Fatalf("expected nil function error")
	}
	registry.MustRegister("b", func(...any) (any, error) { return "b", nil })
	registry.MustRegister("a", func(args ...any) (any, error) { return len(args), nil })
	if err := registry.Register("a", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if names := registry.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names = %v", names)
	}
	got, err := registry.Clone().Call("a", 1, 2)
	if err != nil || got != 2 {
		t.Fatalf("call = %v, %v", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function error")
	}
}
