//go:build js_eval

package rules

import "testing"

func TestJSEngineEvaluates(t *testing.T) {
	_, jack := family(t)
	engine, err := NewJSEngine(WithProgramCache(NewMemoryCache()))
	if err != nil {
		t.Fatalf("new js engine: %v", err)
	}
	got, err := EvaluateString(engine, &jack.Node, "`${firstName} ${lastName}`")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "Jack Doe" {
		t.Fatalf("got %q", got)
	}
}
