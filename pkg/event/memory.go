package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryRepository keeps events in process, ordered by timestamp.
type MemoryRepository struct {
	mu     sync.RWMutex
	series *Series
	source Source
	logger *slog.Logger
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithCapacity bounds the number of stored events; the oldest are evicted first.
func WithCapacity(n int) MemoryOption {
	return func(r *MemoryRepository) {
		r.series = NewSeries(n)
	}
}

// WithRepositorySource sets the source of events the repository logs itself (purges).
func WithRepositorySource(s Source) MemoryOption {
	return func(r *MemoryRepository) {
		r.source = s
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) MemoryOption {
	return func(r *MemoryRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewMemoryRepository creates an empty in-memory event repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		series: NewSeries(0),
		source: SourceUnknown,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRepository) CreateSchema(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Log(ctx context.Context, e Event) error {
	return r.LogBatch(ctx, []Event{e})
}

// LogBatch stores all events or none.
func (r *MemoryRepository) LogBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.series.Add(e.Clone())
	}
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, uid string) (Event, error) {
	if uid == "" {
		return Event{}, errors.Join(ErrInvalidArgument, errors.New("event uid is required"))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for e := range r.series.All() {
		if e.UID == uid {
			return e.Clone(), nil
		}
	}
	return Event{}, errors.Join(ErrEventNotFound, fmt.Errorf("event %q", uid))
}

func (r *MemoryRepository) Search(ctx context.Context, q Query) (*Series, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewSeries(0)
	for e := range r.series.All() {
		if q.Match(e) {
			out.Add(e.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) Purge(ctx context.Context, q Query) error {
	if err := q.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	kept := NewSeries(r.series.Capacity())
	purged := 0
	for e := range r.series.All() {
		if q.Match(e) {
			purged++
			continue
		}
		kept.Add(e)
	}
	r.series = kept
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "events purged", slog.Int("count", purged))
	return r.Log(ctx, PurgeEvent(q, r.source))
}

func (r *MemoryRepository) TotalHitCount(ctx context.Context, q Query) (int, error) {
	s, err := r.Search(ctx, HitQuery(q))
	if err != nil {
		return 0, err
	}
	return s.Len(), nil
}

func (r *MemoryRepository) HitCount(ctx context.Context, q Query) (map[string]int, error) {
	return r.HitCountBy(ctx, q, DimensionTarget)
}

func (r *MemoryRepository) HitCountBy(ctx context.Context, q Query, d Dimension) (map[string]int, error) {
	if !d.Valid() {
		return nil, errors.Join(ErrInvalidArgument, fmt.Errorf("unknown dimension %q", d))
	}
	s, err := r.Search(ctx, HitQuery(q))
	if err != nil {
		return nil, err
	}
	return CountHits(s.All(), d), nil
}

// Len returns the number of stored events.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.series.Len()
}

func (r *MemoryRepository) RegisterAuditListener(Logger) {}

func (r *MemoryRepository) UnregisterAuditListener() {}
