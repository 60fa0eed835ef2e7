// Package featurestore provides persistent feature.Repository implementations.
//
// RedisRepository keeps each feature as a JSON document and maintains set
// indexes for uids and groups:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	repo := featurestore.NewRedisRepository(client, featurestore.WithKeyPrefix(cfg.Redis.KeyPrefix))
//
// Transport failures are reported as feature.ErrRepositoryUnavailable.
package featurestore
