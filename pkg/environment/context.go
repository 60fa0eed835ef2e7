package environment

import (
	"context"
	"strings"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Staging     Environment = "staging"
)

// Parse resolves a name or its short alias (dev, stage, prod) case-insensitively.
// Empty names resolve to Development; unknown names are returned lowercased.
func Parse(name string) Environment {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "dev", string(Development):
		return Development
	case "stage", string(Staging):
		return Staging
	case "prod", string(Production):
		return Production
	default:
		return Environment(n)
	}
}

type contextKey struct{}

// WithContext stores the environment name in ctx. Environment strategies
// compare it verbatim against their configured names.
func WithContext(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment name stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(string)
	return env
}

func IsProduction(ctx context.Context) bool {
	return is(ctx, Production)
}

func IsDevelopment(ctx context.Context) bool {
	return is(ctx, Development)
}

func IsStaging(ctx context.Context) bool {
	return is(ctx, Staging)
}

func is(ctx context.Context, env Environment) bool {
	name := FromContext(ctx)
	return name != "" && Parse(name) == env
}
