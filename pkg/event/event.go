package event

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable record of something that happened to a feature or a store.
type Event struct {
	UID       string            `json:"uid" bson:"uid"`
	Timestamp time.Time         `json:"timestamp" bson:"timestamp"`
	Source    Source            `json:"source" bson:"source"`
	Scope     Scope             `json:"scope" bson:"scope"`
	Action    Action            `json:"action" bson:"action"`
	TargetUID string            `json:"targetUid,omitempty" bson:"target_uid,omitempty"`
	User      string            `json:"user,omitempty" bson:"user,omitempty"`
	Host      string            `json:"host,omitempty" bson:"host,omitempty"`
	Value     string            `json:"value,omitempty" bson:"value,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty" bson:"duration,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Option configures an event at creation.
type Option func(*Event)

// WithSource sets the event source. The default is SourceUnknown.
func WithSource(s Source) Option {
	return func(e *Event) {
		e.Source = s
	}
}

// WithTimestamp overrides the creation time.
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.Timestamp = t.UTC()
	}
}

// WithUser records the user that triggered the event.
func WithUser(user string) Option {
	return func(e *Event) {
		e.User = user
	}
}

// WithHost records the host the event was produced on.
func WithHost(host string) Option {
	return func(e *Event) {
		e.Host = host
	}
}

// WithValue attaches a free-form value, e.g. the new state of a property.
func WithValue(v string) Option {
	return func(e *Event) {
		e.Value = v
	}
}

// WithDuration records how long the traced operation took.
func WithDuration(d time.Duration) Option {
	return func(e *Event) {
		e.Duration = d
	}
}

// WithMetadata merges key/value pairs into the event metadata.
func WithMetadata(kv map[string]string) Option {
	return func(e *Event) {
		if len(kv) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(kv))
		}
		maps.Copy(e.Metadata, kv)
	}
}

// New creates an event with a fresh uid and the current time.
func New(action Action, scope Scope, target string, opts ...Option) Event {
	e := Event{
		UID:       uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    SourceUnknown,
		Scope:     scope,
		Action:    action,
		TargetUID: target,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Validate checks the fields every store relies on.
func (e Event) Validate() error {
	if e.UID == "" {
		return errors.Join(ErrInvalidArgument, errors.New("event uid is required"))
	}
	if e.Timestamp.IsZero() {
		return errors.Join(ErrInvalidArgument, errors.New("event timestamp is required"))
	}
	return nil
}

// Clone returns a copy that shares no metadata map with e.
func (e Event) Clone() Event {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// Before orders events by timestamp, then uid.
func (e Event) Before(o Event) bool {
	if !e.Timestamp.Equal(o.Timestamp) {
		return e.Timestamp.Before(o.Timestamp)
	}
	return e.UID < o.UID
}

func compare(a, b Event) int {
	if a.Before(b) {
		return -1
	}
	if b.Before(a) {
		return 1
	}
	return 0
}
