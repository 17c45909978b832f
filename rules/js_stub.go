//go:build !js_eval

package rules

// NewJSEngine requires the js_eval build tag.
func NewJSEngine(opts ...EngineOption) (Engine, error) {
	_ = applyEngineOptions(opts)
	return nil, ErrEngineUnavailable
}

// JSAvailable reports whether NewJSEngine is functional in this build.
func JSAvailable() bool { return false }
