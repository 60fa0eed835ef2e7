package feature

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
)

// MemoryRepository keeps features in process. Features and the group index
// are guarded together, so readers never see one without the other.
type MemoryRepository struct {
	*Notifier

	mu       sync.RWMutex
	order    []string
	features map[string]*Feature
	groups   map[string][]string
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	logger   *slog.Logger
	features []*Feature
}

// WithLogger sets the logger used for listener failures.
func WithLogger(l *slog.Logger) MemoryOption {
	return func(o *memoryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFeatures preloads features. Nil entries are skipped.
func WithFeatures(features ...*Feature) MemoryOption {
	return func(o *memoryOptions) {
		o.features = append(o.features, features...)
	}
}

// NewMemoryRepository creates a repository, optionally preloaded.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	o := memoryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &MemoryRepository{
		Notifier: NewNotifier(o.logger),
		features: make(map[string]*Feature),
		groups:   make(map[string][]string),
	}
	r.load(o.features)
	return r
}

// NewMemoryRepositoryFromConfig creates a repository holding the configured features.
func NewMemoryRepositoryFromConfig(cfg *Config, opts ...MemoryOption) (*MemoryRepository, error) {
	if cfg == nil {
		return nil, errors.Join(ErrConfiguration, errors.New("config cannot be nil"))
	}
	return NewMemoryRepository(append(opts, WithFeatures(cfg.Features...))...), nil
}

// NewMemoryRepositoryFromReader parses r with parser and loads the result.
func NewMemoryRepositoryFromReader(ctx context.Context, parser Parser, r io.Reader, opts ...MemoryOption) (*MemoryRepository, error) {
	if parser == nil || r == nil {
		return nil, errors.Join(ErrConfiguration, errors.New("parser and reader are required"))
	}
	cfg, err := parser.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	return NewMemoryRepositoryFromConfig(cfg, opts...)
}

// NewMemoryRepositoryFromFile parses the file at path. A nil parser is picked
// from the file extension.
func NewMemoryRepositoryFromFile(ctx context.Context, parser Parser, path string, opts ...MemoryOption) (*MemoryRepository, error) {
	if parser == nil {
		var err error
		if parser, err = NewParserForFile(path); err != nil {
			return nil, err
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, fmt.Errorf("open %q", path), err)
	}
	defer file.Close()
	return NewMemoryRepositoryFromReader(ctx, parser, file, opts...)
}

// load stores the initial features without notifying listeners.
func (r *MemoryRepository) load(features []*Feature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range features {
		if f == nil {
			continue
		}
		r.put(f.MustClone())
	}
	r.reindex()
}

func (r *MemoryRepository) CreateSchema(ctx context.Context) error {
	r.NotifyCreateSchema(ctx)
	return nil
}

func (r *MemoryRepository) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, errors.Join(ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.features[uid]
	return ok, nil
}

func (r *MemoryRepository) Find(ctx context.Context, uid string) (*Feature, error) {
	if uid == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}
	r.mu.RLock()
	f, ok := r.features[uid]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Join(ErrFeatureNotFound, fmt.Errorf("feature %q", uid))
	}
	return f.Clone("")
}

func (r *MemoryRepository) Save(ctx context.Context, f *Feature) error {
	if f == nil {
		return errors.Join(ErrInvalidArgument, errors.New("feature cannot be nil"))
	}
	stored, err := f.Clone("")
	if err != nil {
		return err
	}
	notified, err := f.Clone("")
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.put(stored)
	r.reindex()
	r.mu.Unlock()

	r.NotifyUpdate(ctx, notified)
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.Join(ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}

	r.mu.Lock()
	if _, ok := r.features[uid]; !ok {
		r.mu.Unlock()
		return errors.Join(ErrFeatureNotFound, fmt.Errorf("feature %q", uid))
	}
	delete(r.features, uid)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == uid })
	r.reindex()
	r.mu.Unlock()

	r.NotifyDelete(ctx, uid)
	return nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	clear(r.features)
	r.order = nil
	r.reindex()
	r.mu.Unlock()

	r.NotifyDeleteAll(ctx)
	return nil
}

func (r *MemoryRepository) FindAll(ctx context.Context) (iter.Seq[*Feature], error) {
	r.mu.RLock()
	snapshot := make([]*Feature, 0, len(r.order))
	for _, uid := range r.order {
		c, err := r.features[uid].Clone("")
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()
	return slices.Values(snapshot), nil
}

func (r *MemoryRepository) FindAllIDs(ctx context.Context) (iter.Seq[string], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Values(slices.Clone(r.order)), nil
}

func (r *MemoryRepository) ExistGroup(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, errors.Join(ErrInvalidArgument, errors.New("group name cannot be empty"))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[name]
	return ok, nil
}

func (r *MemoryRepository) ReadGroup(ctx context.Context, name string) ([]*Feature, error) {
	if name == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("group name cannot be empty"))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.groups[name]
	if !ok {
		return nil, errors.Join(ErrGroupNotFound, fmt.Errorf("group %q", name))
	}
	out := make([]*Feature, 0, len(members))
	for _, uid := range members {
		c, err := r.features[uid].Clone("")
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepository) ListGroupNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.groups)), nil
}

// Len returns the number of stored features.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.features)
}

// put stores f, keeping the position of an existing feature. Callers hold mu.
func (r *MemoryRepository) put(f *Feature) {
	if _, ok := r.features[f.uid]; !ok {
		r.order = append(r.order, f.uid)
	}
	r.features[f.uid] = f
}

// reindex rebuilds the group index from scratch. Callers hold mu.
func (r *MemoryRepository) reindex() {
	clear(r.groups)
	for _, uid := range r.order {
		if g := r.features[uid].group; g != "" {
			r.groups[g] = append(r.groups[g], uid)
		}
	}
}
