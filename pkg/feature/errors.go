package feature

import (
	"errors"
	"fmt"
)

// Predefined errors for the feature package.
var (
	// ErrInvalidArgument indicates a missing uid, a nil feature or another malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFeatureNotFound indicates that the requested feature does not exist.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrGroupNotFound indicates that no feature belongs to the requested group.
	ErrGroupNotFound = errors.New("feature group not found")

	// ErrUnknownStrategy indicates that no factory is registered for a strategy type.
	ErrUnknownStrategy = errors.New("unknown toggle strategy")

	// ErrInvalidStrategy indicates missing or out of range strategy parameters.
	ErrInvalidStrategy = errors.New("invalid toggle strategy")

	// ErrConfiguration indicates an unreadable or malformed feature configuration.
	ErrConfiguration = errors.New("invalid feature configuration")

	// ErrRepositoryUnavailable indicates the repository backend failed.
	ErrRepositoryUnavailable = errors.New("feature repository is unavailable")
)

// StrategyError reports the strategy that failed during IsToggled.
type StrategyError struct {
	Type string
	Err  error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("toggle strategy %q: %v", e.Type, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}
