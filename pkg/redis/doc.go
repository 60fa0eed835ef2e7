// Package redis connects to Redis for the feature store.
//
// Config is populated from environment variables (REDIS_URL, REDIS_KEY_PREFIX,
// REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT) through
// pkg/config:
//
//	cfg, err := config.Load[redis.Config]()
//	if err != nil {
//		return err
//	}
//	client, err := redis.Connect(ctx, cfg, redis.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := featurestore.NewRedisRepository(client, featurestore.WithKeyPrefix(cfg.KeyPrefix))
//
// Healthcheck adapts a client to a func(context.Context) error probe.
//
// Errors are sentinel values joined with the driver error, so errors.Is works
// for both.
package redis
