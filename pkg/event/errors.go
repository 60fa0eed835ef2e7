package event

import "errors"

var (
	// ErrInvalidArgument indicates a malformed event or query.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEventNotFound indicates no event with the given uid is stored.
	ErrEventNotFound = errors.New("event not found")

	// ErrRepositoryUnavailable indicates the event store backend failed.
	ErrRepositoryUnavailable = errors.New("event repository is unavailable")

	// ErrWriterClosed indicates the async writer no longer accepts events.
	ErrWriterClosed = errors.New("async writer is closed")
)
