// Package environment carries the deployment environment through
// context.Context.
//
// The environment toggle strategy reads the value stored with WithContext when
// the toggle context does not name one, and LoggerExtractor copies it into log
// records:
//
//	ctx = environment.WithContext(ctx, "staging")
//	on, err := manager.Check(ctx, "new-ui", feature.NewToggleContext(userID, nil))
//
// Parse normalizes names and their short aliases (dev, stage, prod).
package environment
