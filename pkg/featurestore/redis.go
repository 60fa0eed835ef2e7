package featurestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// maxTxRetries bounds optimistic transaction retries on concurrent writes.
const maxTxRetries = 5

// pruneGroupsScript returns the group names that still have members and
// drops the others from the name index, in one atomic step.
//
//	KEYS[1] the group name set
//	ARGV[1] the group key prefix
var pruneGroupsScript = redis.NewScript(`
local live = {}
for _, name in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  if redis.call("EXISTS", ARGV[1] .. name) == 1 then
    table.insert(live, name)
  else
    redis.call("SREM", KEYS[1], name)
  end
end
return live
`)

// deleteAllScript removes every document, group set and index of a store
// atomically and returns the number of features removed.
//
//	KEYS[1] the feature uid set
//	KEYS[2] the group name set
//	ARGV[1] the feature key prefix
//	ARGV[2] the group key prefix
var deleteAllScript = redis.NewScript(`
local uids = redis.call("SMEMBERS", KEYS[1])
for _, uid in ipairs(uids) do
  redis.call("DEL", ARGV[1] .. uid)
end
for _, name in ipairs(redis.call("SMEMBERS", KEYS[2])) do
  redis.call("DEL", ARGV[2] .. name)
end
redis.call("DEL", KEYS[1], KEYS[2])
return #uids
`)

// RedisRepository stores features in Redis as JSON documents with set based
// indexes for uids and groups. Group membership is updated in the same
// WATCH/MULTI transaction as the document, and index sweeps run as Lua
// scripts, so concurrent writers never leave the index out of step. Redis
// removes empty sets, so a group disappears with its last member.
type RedisRepository struct {
	*feature.Notifier

	client redis.UniversalClient
	keys   keyspace
	logger *slog.Logger
}

var _ feature.Repository = (*RedisRepository)(nil)

// Option configures a RedisRepository.
type Option func(*RedisRepository)

// WithKeyPrefix namespaces every key. The default is DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisRepository) {
		if prefix != "" {
			r.keys = keyspace(prefix)
		}
	}
}

// WithLogger sets the logger for listener failures and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *RedisRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRedisRepository creates a repository on client.
func NewRedisRepository(client redis.UniversalClient, opts ...Option) *RedisRepository {
	if client == nil {
		panic("featurestore: redis client cannot be nil")
	}
	r := &RedisRepository{
		client: client,
		keys:   keyspace(DefaultKeyPrefix),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("featurestore.redis"))
	r.Notifier = feature.NewNotifier(r.logger)
	return r
}

// CreateSchema checks connectivity; Redis needs no schema.
func (r *RedisRepository) CreateSchema(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	r.NotifyCreateSchema(ctx)
	return nil
}

func (r *RedisRepository) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, errors.Join(feature.ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}
	ok, err := r.client.SIsMember(ctx, r.keys.features(), uid).Result()
	if err != nil {
		return false, unavailable("sismember", err)
	}
	return ok, nil
}

func (r *RedisRepository) Find(ctx context.Context, uid string) (*feature.Feature, error) {
	if uid == "" {
		return nil, errors.Join(feature.ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}
	data, err := r.client.Get(ctx, r.keys.feature(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Join(feature.ErrFeatureNotFound, fmt.Errorf("feature %q", uid))
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return decode(data)
}

func (r *RedisRepository) Save(ctx context.Context, f *feature.Feature) error {
	if f == nil {
		return errors.Join(feature.ErrInvalidArgument, errors.New("feature cannot be nil"))
	}
	notified, err := f.Clone("")
	if err != nil {
		return err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	uid, group := f.UID(), f.Group()
	err = r.watch(ctx, func(tx *redis.Tx) error {
		previous, _, err := r.storedGroup(ctx, tx, uid)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.keys.feature(uid), data, 0)
			pipe.SAdd(ctx, r.keys.features(), uid)
			if previous != "" && previous != group {
				pipe.SRem(ctx, r.keys.group(previous), uid)
			}
			if group != "" {
				pipe.SAdd(ctx, r.keys.group(group), uid)
				pipe.SAdd(ctx, r.keys.groups(), group)
			}
			return nil
		})
		return err
	}, uid)
	if err != nil {
		return err
	}

	r.NotifyUpdate(ctx, notified)
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.Join(feature.ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}

	err := r.watch(ctx, func(tx *redis.Tx) error {
		group, found, err := r.storedGroup(ctx, tx, uid)
		if err != nil {
			return err
		}
		if !found {
			return errors.Join(feature.ErrFeatureNotFound, fmt.Errorf("feature %q", uid))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, r.keys.feature(uid))
			pipe.SRem(ctx, r.keys.features(), uid)
			if group != "" {
				pipe.SRem(ctx, r.keys.group(group), uid)
			}
			return nil
		})
		return err
	}, uid)
	if err != nil {
		return err
	}

	r.NotifyDelete(ctx, uid)
	return nil
}

func (r *RedisRepository) DeleteAll(ctx context.Context) error {
	n, err := deleteAllScript.Run(ctx, r.client,
		[]string{r.keys.features(), r.keys.groups()},
		r.keys.feature(""), r.keys.group(""),
	).Int()
	if err != nil {
		return unavailable("delete all", err)
	}
	r.logger.DebugContext(ctx, "features deleted", logger.Count(n))

	r.NotifyDeleteAll(ctx)
	return nil
}

// FindAll iterates over every feature ordered by uid.
func (r *RedisRepository) FindAll(ctx context.Context) (iter.Seq[*feature.Feature], error) {
	uids, err := r.sortedMembers(ctx, r.keys.features())
	if err != nil {
		return nil, err
	}
	features, err := r.load(ctx, uids)
	if err != nil {
		return nil, err
	}
	return slices.Values(features), nil
}

// FindAllIDs iterates over every feature uid in sorted order.
func (r *RedisRepository) FindAllIDs(ctx context.Context) (iter.Seq[string], error) {
	uids, err := r.sortedMembers(ctx, r.keys.features())
	if err != nil {
		return nil, err
	}
	return slices.Values(uids), nil
}

func (r *RedisRepository) ExistGroup(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, errors.Join(feature.ErrInvalidArgument, errors.New("group name cannot be empty"))
	}
	n, err := r.client.Exists(ctx, r.keys.group(name)).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

// ReadGroup returns the members of a group ordered by uid.
func (r *RedisRepository) ReadGroup(ctx context.Context, name string) ([]*feature.Feature, error) {
	if name == "" {
		return nil, errors.Join(feature.ErrInvalidArgument, errors.New("group name cannot be empty"))
	}
	uids, err := r.sortedMembers(ctx, r.keys.group(name))
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, errors.Join(feature.ErrGroupNotFound, fmt.Errorf("group %q", name))
	}
	return r.load(ctx, uids)
}

// ListGroupNames returns the groups that still have members. Names of groups
// that emptied out are pruned from the index on the way.
func (r *RedisRepository) ListGroupNames(ctx context.Context) ([]string, error) {
	live, err := pruneGroupsScript.Run(ctx, r.client,
		[]string{r.keys.groups()},
		r.keys.group(""),
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("list groups", err)
	}
	if live == nil {
		live = []string{}
	}
	slices.Sort(live)
	return live, nil
}

// watch runs fn in an optimistic transaction on the feature key, retrying
// when a concurrent writer touches it first.
func (r *RedisRepository) watch(ctx context.Context, fn func(*redis.Tx) error, uid string) error {
	for range maxTxRetries {
		err := r.client.Watch(ctx, fn, r.keys.feature(uid))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !isDomainError(err) {
			return unavailable("transaction", err)
		}
		return err
	}
	return unavailable("transaction", fmt.Errorf("feature %q: too many concurrent updates", uid))
}

// storedGroup reads the group of the stored version of uid.
func (r *RedisRepository) storedGroup(ctx context.Context, tx *redis.Tx, uid string) (string, bool, error) {
	data, err := tx.Get(ctx, r.keys.feature(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var rec struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", true, errors.Join(feature.ErrInvalidArgument, fmt.Errorf("stored feature %q", uid), err)
	}
	return rec.Group, true, nil
}

func (r *RedisRepository) sortedMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable("smembers", err)
	}
	slices.Sort(members)
	return members, nil
}

// load fetches features by uid, skipping documents deleted in the meantime.
func (r *RedisRepository) load(ctx context.Context, uids []string) ([]*feature.Feature, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = r.keys.feature(uid)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("mget", err)
	}

	out := make([]*feature.Feature, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		f, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func decode(data []byte) (*feature.Feature, error) {
	var f feature.Feature
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(feature.ErrInvalidArgument, errors.New("stored feature is corrupt"), err)
	}
	return &f, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, feature.ErrFeatureNotFound) || errors.Is(err, feature.ErrInvalidArgument)
}
