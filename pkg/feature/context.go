package feature

import "fmt"

// ToggleContext carries the caller data strategies decide on. Feature is set
// by Feature.IsToggled before any strategy runs.
type ToggleContext struct {
	Feature *Feature
	UserID  string
	Params  map[string]any
}

// NewToggleContext creates a context for user with optional key/value params.
func NewToggleContext(userID string, params map[string]any) ToggleContext {
	return ToggleContext{UserID: userID, Params: params}
}

// Param returns the named parameter.
func (tc ToggleContext) Param(name string) (any, bool) {
	v, ok := tc.Params[name]
	return v, ok
}

// ParamString returns the named parameter formatted as a string, "" when absent.
func (tc ToggleContext) ParamString(name string) string {
	v, ok := tc.Params[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// FeatureUID returns the uid of the evaluated feature, "" before evaluation.
func (tc ToggleContext) FeatureUID() string {
	if tc.Feature == nil {
		return ""
	}
	return tc.Feature.UID()
}
