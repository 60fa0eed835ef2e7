package feature

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/featurekit/pkg/cache"
)

// DefaultCacheSize is the number of features a CachedRepository keeps.
const DefaultCacheSize = 1000

// CachedRepository is a read-through LRU cache in front of another
// repository. Writes go to the backend first and then drop the cached entry.
// Changes made by other processes are only seen after eviction.
//
// Every invalidation bumps the generation of its key. A Find only fills the
// cache when the generation it saw before reading the backend is still
// current, so a read that raced a write never caches the older copy.
type CachedRepository struct {
	Repository
	cache *cache.LRUCache[string, *Feature]

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// generation identifies the state of one key between invalidations.
type generation struct {
	epoch uint64
	gen   uint64
}

var _ Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps backend with a cache of size entries (DefaultCacheSize when <= 0).
func NewCachedRepository(backend Repository, size int) *CachedRepository {
	if backend == nil {
		panic("feature: cached repository backend cannot be nil")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &CachedRepository{
		Repository: backend,
		cache:      cache.NewLRUCache[string, *Feature](size),
		gens:       make(map[string]uint64),
	}
}

func (r *CachedRepository) Exists(ctx context.Context, uid string) (bool, error) {
	if _, ok := r.cache.Get(uid); ok {
		return true, nil
	}
	return r.Repository.Exists(ctx, uid)
}

func (r *CachedRepository) Find(ctx context.Context, uid string) (*Feature, error) {
	if f, ok := r.cache.Get(uid); ok {
		return f.Clone("")
	}

	seen := r.generation(uid)
	f, err := r.Repository.Find(ctx, uid)
	if err != nil {
		return nil, err
	}
	cached, err := f.Clone("")
	if err != nil {
		return nil, err
	}
	r.fill(uid, seen, cached)
	return f, nil
}

func (r *CachedRepository) Save(ctx context.Context, f *Feature) error {
	if f == nil {
		return errors.Join(ErrInvalidArgument, errors.New("feature cannot be nil"))
	}
	defer r.invalidate(f.UID())
	return r.Repository.Save(ctx, f)
}

func (r *CachedRepository) Delete(ctx context.Context, uid string) error {
	defer r.invalidate(uid)
	return r.Repository.Delete(ctx, uid)
}

func (r *CachedRepository) DeleteAll(ctx context.Context) error {
	defer r.invalidateAll()
	return r.Repository.DeleteAll(ctx)
}

// Evict drops uid from the cache.
func (r *CachedRepository) Evict(uid string) {
	r.invalidate(uid)
}

func (r *CachedRepository) generation(uid string) generation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return generation{epoch: r.epoch, gen: r.gens[uid]}
}

// fill caches f unless uid was invalidated after seen was taken.
func (r *CachedRepository) fill(uid string, seen generation, f *Feature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seen.epoch != r.epoch || seen.gen != r.gens[uid] {
		return
	}
	r.cache.Put(uid, f)
}

func (r *CachedRepository) invalidate(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[uid]++
	r.cache.Remove(uid)
}

func (r *CachedRepository) invalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	clear(r.gens)
	r.cache.Clear()
}

// Len returns the number of cached features.
func (r *CachedRepository) Len() int {
	return r.cache.Len()
}

// CacheStats reports cache hits, misses and evictions.
func (r *CachedRepository) CacheStats() cache.Stats {
	return r.cache.Stats()
}
