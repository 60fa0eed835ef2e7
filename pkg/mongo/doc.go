// Package mongo connects to MongoDB with the official v2 driver.
//
// Configuration comes from MONGODB_* environment variables. New retries the
// initial connection and logs every failed attempt; Healthcheck returns a
// probe for readiness checks.
//
//	cfg, err := config.Load[mongo.Config]()
//	if err != nil {
//		return err
//	}
//	db, err := mongo.NewWithDatabase(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
