package feature

import (
	"context"
	"iter"

	"github.com/dmitrymomot/featurekit/pkg/event"
)

// Repository stores features. Implementations return copies: mutating a
// returned Feature has no effect until it is saved again.
type Repository interface {
	// CreateSchema prepares the backend and notifies listeners. It is idempotent.
	CreateSchema(ctx context.Context) error

	// Exists reports whether a feature is stored. An empty uid is ErrInvalidArgument.
	Exists(ctx context.Context, uid string) (bool, error)

	// Find returns the feature or ErrFeatureNotFound.
	Find(ctx context.Context, uid string) (*Feature, error)

	// Save creates or replaces the feature and notifies listeners.
	Save(ctx context.Context, f *Feature) error

	// Delete removes the feature, or returns ErrFeatureNotFound.
	Delete(ctx context.Context, uid string) error

	// DeleteAll removes every feature and notifies listeners once.
	DeleteAll(ctx context.Context) error

	// FindAll iterates over a snapshot of every feature.
	FindAll(ctx context.Context) (iter.Seq[*Feature], error)

	// FindAllIDs iterates over a snapshot of every feature uid.
	FindAllIDs(ctx context.Context) (iter.Seq[string], error)

	// ExistGroup reports whether any feature belongs to the group.
	ExistGroup(ctx context.Context, name string) (bool, error)

	// ReadGroup returns the members of a group or ErrGroupNotFound.
	ReadGroup(ctx context.Context, name string) ([]*Feature, error)

	// ListGroupNames returns the non-empty group names in sorted order.
	ListGroupNames(ctx context.Context) ([]string, error)

	RegisterListener(name string, l Listener) error
	UnregisterListener(name string)

	// RegisterAuditListener records every change as an event in logger.
	RegisterAuditListener(logger event.Logger, opts ...event.AuditOption)
	UnregisterAuditListener()
}
