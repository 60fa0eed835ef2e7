// Package logger builds log/slog loggers and defines the attribute helpers
// used across featurekit.
//
// New creates a logger from options: output format and level, static
// attributes, and ContextExtractor callbacks that add attributes from the
// context of each record. WithEnvironment applies a preset per deployment
// environment:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, cfg.Service),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "feature toggled",
//		logger.Feature("new-ui"),
//		logger.UserID(userID),
//	)
//
// Helpers such as Feature, FeatureGroup, Strategy and Error keep attribute
// keys consistent between packages.
package logger
