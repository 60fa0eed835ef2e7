package eventstore

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/featurekit/pkg/event"
)

func unavailable(backend, op string, err error) error {
	return errors.Join(event.ErrRepositoryUnavailable, fmt.Errorf("%s %s", backend, op), err)
}

func notFound(uid string) error {
	return errors.Join(event.ErrEventNotFound, fmt.Errorf("event %q", uid))
}

func invalidDimension(d event.Dimension) error {
	return errors.Join(event.ErrInvalidArgument, fmt.Errorf("unknown dimension %q", d))
}

func emptyUID() error {
	return errors.Join(event.ErrInvalidArgument, errors.New("event uid is required"))
}

func validateAll(events []event.Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}
