// Package feature provides feature toggles with pluggable rollout strategies,
// grouped management, change listeners and in-memory storage.
//
// # Architecture
//
// The package is built around four concepts:
//
//  1. Feature: a named switch with a group, strategies, properties and an ACL
//  2. ToggleStrategy: a rule deciding whether an enabled feature is on for a ToggleContext
//  3. Repository: storage for features, with a group index and change listeners
//  4. Manager: the application-facing checks and bulk toggles
//
// Evaluation happens in two stages. A disabled feature is off. An enabled
// feature is on unless one of its strategies, evaluated in order, says no.
//
// # Usage
//
//	import "github.com/dmitrymomot/featurekit/pkg/feature"
//
//	rollout, err := feature.NewPercentage(25)
//	if err != nil {
//		return err
//	}
//	f, err := feature.New("new-ui",
//		feature.WithEnabled(true),
//		feature.WithGroup("ui"),
//		feature.WithStrategies(rollout),
//	)
//	if err != nil {
//		return err
//	}
//
//	repo := feature.NewMemoryRepository(feature.WithFeatures(f))
//	manager := feature.NewManager(repo, feature.WithUsageLogger(events))
//
//	on, err := manager.Check(ctx, "new-ui", feature.NewToggleContext(userID, nil))
//
// # Strategies
//
// Built-in strategies are registered under their type name and rebuilt from
// their properties, so they survive a round trip through a config file or a
// store:
//
//   - always: fixed answer (value)
//   - allow-list: on for the listed users (users)
//   - deny-list: off for the listed users and anonymous callers (users)
//   - percentage: stable rollout by FNV-1a bucket of feature and user (percentage)
//   - environment: on in the listed environments (environments)
//   - release-date: on from a point in time (releaseDate)
//
// Custom strategies are added with RegisterStrategy.
//
// # Listeners
//
// Repositories notify listeners after a change is applied, outside any lock.
// Listener failures are logged and never fail the repository call. The audit
// listener, registered with RegisterAuditListener, turns every change into an
// event.Event.
//
// # Configuration
//
// Features can be loaded from YAML or JSON:
//
//	features:
//	  - uid: new-ui
//	    enabled: true
//	    group: ui
//	    strategies:
//	      - type: allow-list
//	        properties:
//	          - uid: users
//	            type: list:string
//	            value: alice,bob
//
//	repo, err := feature.NewMemoryRepositoryFromFile(ctx, nil, "features.yaml")
//
// # Error Handling
//
// The package defines sentinel errors such as ErrFeatureNotFound,
// ErrGroupNotFound and ErrInvalidStrategy. Use errors.Is to check them.
package feature
