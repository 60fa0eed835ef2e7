package featurestore

import (
	"errors"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// unavailable wraps a backend failure so callers can match feature.ErrRepositoryUnavailable.
func unavailable(op string, err error) error {
	return errors.Join(feature.ErrRepositoryUnavailable, errors.New("redis "+op), err)
}
