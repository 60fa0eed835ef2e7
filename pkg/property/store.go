package property

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// MemoryStore keeps standalone properties in process, in insertion order.
// It stores and returns copies, so callers never share a value with it.
type MemoryStore struct {
	listeners

	mu    sync.RWMutex
	order []string
	props map[string]Property
}

// StoreOption configures a MemoryStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger *slog.Logger
	props  []Property
}

// WithStoreLogger sets the logger used for listener failures.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProperties preloads the store. Nil entries are skipped.
func WithProperties(props ...Property) StoreOption {
	return func(o *storeOptions) {
		o.props = append(o.props, props...)
	}
}

// NewMemoryStore creates a store, optionally preloaded without notifications.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	o := storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &MemoryStore{
		listeners: listeners{logger: o.logger.With(logger.Component("property.store"))},
		props:     make(map[string]Property),
	}
	for _, p := range o.props {
		if p != nil {
			s.put(p.Clone())
		}
	}
	return s
}

func (s *MemoryStore) CreateSchema(ctx context.Context) error {
	s.dispatch(ctx, "create_schema", "", func(l Listener) error {
		return l.OnCreateSchema(ctx)
	})
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, errors.Join(ErrInvalidArgument, errors.New("property uid cannot be empty"))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.props[uid]
	return ok, nil
}

func (s *MemoryStore) Find(ctx context.Context, uid string) (Property, error) {
	if uid == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("property uid cannot be empty"))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[uid]
	if !ok {
		return nil, errors.Join(ErrPropertyNotFound, fmt.Errorf("property %q", uid))
	}
	return p.Clone(), nil
}

// Save creates or replaces the property with the same uid.
func (s *MemoryStore) Save(ctx context.Context, p Property) error {
	if p == nil {
		return errors.Join(ErrInvalidArgument, errors.New("property cannot be nil"))
	}
	stored := p.Clone()

	s.mu.Lock()
	s.put(stored)
	notified := stored.Clone()
	s.mu.Unlock()

	s.notifyUpdate(ctx, notified)
	return nil
}

// SetValue decodes raw into the stored property. The fixed values of the
// property still apply.
func (s *MemoryStore) SetValue(ctx context.Context, uid, raw string) error {
	if uid == "" {
		return errors.Join(ErrInvalidArgument, errors.New("property uid cannot be empty"))
	}

	s.mu.Lock()
	p, ok := s.props[uid]
	if !ok {
		s.mu.Unlock()
		return errors.Join(ErrPropertyNotFound, fmt.Errorf("property %q", uid))
	}
	updated := p.Clone()
	if err := updated.SetFromString(raw); err != nil {
		s.mu.Unlock()
		return err
	}
	s.props[uid] = updated
	notified := updated.Clone()
	s.mu.Unlock()

	s.notifyUpdate(ctx, notified)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.Join(ErrInvalidArgument, errors.New("property uid cannot be empty"))
	}

	s.mu.Lock()
	if _, ok := s.props[uid]; !ok {
		s.mu.Unlock()
		return errors.Join(ErrPropertyNotFound, fmt.Errorf("property %q", uid))
	}
	delete(s.props, uid)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == uid })
	s.mu.Unlock()

	s.dispatch(ctx, "delete", uid, func(l Listener) error {
		return l.OnDelete(ctx, uid)
	})
	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	clear(s.props)
	s.order = nil
	s.mu.Unlock()

	s.dispatch(ctx, "delete_all", "", func(l Listener) error {
		return l.OnDeleteAll(ctx)
	})
	return nil
}

// FindAll iterates over copies of every property in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context) (iter.Seq[Property], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]Property, 0, len(s.order))
	for _, uid := range s.order {
		snapshot = append(snapshot, s.props[uid].Clone())
	}
	return slices.Values(snapshot), nil
}

// FindAllIDs iterates over the stored uids in insertion order.
func (s *MemoryStore) FindAllIDs(ctx context.Context) (iter.Seq[string], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Values(slices.Clone(s.order)), nil
}

// Len returns the number of stored properties.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}

// put stores p, keeping the position of an existing uid. Callers hold mu.
func (s *MemoryStore) put(p Property) {
	if _, ok := s.props[p.UID()]; !ok {
		s.order = append(s.order, p.UID())
	}
	s.props[p.UID()] = p
}

func (s *MemoryStore) notifyUpdate(ctx context.Context, p Property) {
	s.dispatch(ctx, "update", p.UID(), func(l Listener) error {
		return l.OnUpdate(ctx, p)
	})
}
