package event

import (
	"iter"
	"slices"
)

// Series is an ordered collection of events, sorted by timestamp then uid.
// With a positive capacity, adding beyond it evicts the oldest events.
type Series struct {
	events   []Event
	capacity int
}

// NewSeries creates an empty series. A capacity <= 0 means unbounded.
func NewSeries(capacity int) *Series {
	return &Series{capacity: max(capacity, 0)}
}

// Add inserts e at its ordered position and evicts overflow from the front.
func (s *Series) Add(events ...Event) {
	for _, e := range events {
		i, _ := slices.BinarySearchFunc(s.events, e, compare)
		s.events = slices.Insert(s.events, i, e)
	}
	if s.capacity > 0 && len(s.events) > s.capacity {
		overflow := len(s.events) - s.capacity
		clear(s.events[:overflow])
		s.events = s.events[overflow:]
	}
}

func (s *Series) Len() int {
	return len(s.events)
}

func (s *Series) IsEmpty() bool {
	return len(s.events) == 0
}

// Capacity returns the eviction bound, 0 when unbounded.
func (s *Series) Capacity() int {
	return s.capacity
}

// Events returns a copy of the ordered events.
func (s *Series) Events() []Event {
	return slices.Clone(s.events)
}

// All iterates over the events in order.
func (s *Series) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, e := range s.events {
			if !yield(e) {
				return
			}
		}
	}
}

// Sorted returns the events ordered by timestamp then uid, leaving the input untouched.
func Sorted(events []Event) []Event {
	out := slices.Clone(events)
	slices.SortFunc(out, compare)
	return out
}

// CountHits groups events by dimension d.
func CountHits(events iter.Seq[Event], d Dimension) map[string]int {
	counts := make(map[string]int)
	for e := range events {
		counts[d.Key(e)]++
	}
	return counts
}
