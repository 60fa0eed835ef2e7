// Package opensearch wraps the official OpenSearch Go client with env-driven
// configuration, a connection check on construction and a health probe.
//
//	cfg, err := config.Load[opensearch.Config]()
//	if err != nil {
//		return err
//	}
//	client, err := opensearch.New(ctx, cfg)
//	if errors.Is(err, opensearch.ErrHealthcheckFailed) {
//		// cluster unreachable
//	}
//
// MaxRetries and DisableRetry map directly to the client's own retry settings.
package opensearch
