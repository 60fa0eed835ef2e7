// Package featurekit wires feature toggles, their audit trail and usage
// tracking into one ready-to-use Kit.
//
// The building blocks live in pkg/: feature (features, strategies, the
// Manager and the in-memory store), property (typed properties), event
// (events, queries and the in-memory event store), featurestore (Redis) and
// eventstore (PostgreSQL, MongoDB, OpenSearch). New picks the backends from
// Config, connects them, registers the audit listener and builds a Manager:
//
//	cfg, err := featurekit.LoadConfig()
//	if err != nil {
//		return err
//	}
//	kit, err := featurekit.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer kit.Close(context.Background())
//
//	on, err := kit.Check(ctx, "new-ui", feature.NewToggleContext(userID, nil))
//
// Every change to a feature is recorded as an event in kit.Events, and every
// positive check as a HIT event, so usage can be counted with
// kit.Events.HitCount.
package featurekit
