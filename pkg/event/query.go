package event

import (
	"errors"
	"fmt"
	"time"
)

// Query selects events in the half-open window [From, To). A zero bound is
// unbounded and zero-valued filters match everything.
type Query struct {
	From      time.Time
	To        time.Time
	Scope     Scope
	Source    Source
	Action    Action
	TargetUID string
}

// NewQuery returns a query over [from, to).
func NewQuery(from, to time.Time) Query {
	return Query{From: from, To: to}
}

// Last returns a query over the trailing window d ending now.
func Last(d time.Duration) Query {
	now := time.Now().UTC()
	return Query{From: now.Add(-d), To: now.Add(time.Nanosecond)}
}

// Validate rejects an inverted window.
func (q Query) Validate() error {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return errors.Join(ErrInvalidArgument,
			fmt.Errorf("query window ends (%s) before it starts (%s)", q.To.Format(time.RFC3339), q.From.Format(time.RFC3339)))
	}
	return nil
}

// Match reports whether e falls inside the window and passes every filter.
func (q Query) Match(e Event) bool {
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.Timestamp.Before(q.To) {
		return false
	}
	if q.Scope != "" && e.Scope != q.Scope {
		return false
	}
	if q.Source != "" && e.Source != q.Source {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.TargetUID != "" && e.TargetUID != q.TargetUID {
		return false
	}
	return true
}

// WithAction returns a copy of q restricted to action a.
func (q Query) WithAction(a Action) Query {
	q.Action = a
	return q
}

// Window returns the bounds as metadata, RFC3339Nano encoded. Unbounded sides are omitted.
func (q Query) Window() map[string]string {
	m := make(map[string]string, 2)
	if !q.From.IsZero() {
		m["from"] = q.From.UTC().Format(time.RFC3339Nano)
	}
	if !q.To.IsZero() {
		m["to"] = q.To.UTC().Format(time.RFC3339Nano)
	}
	return m
}
