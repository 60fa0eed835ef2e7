// Package telemetry sets up OpenTelemetry tracing with an OTLP/HTTP exporter
// and links log records to the active span.
//
//	var cfg telemetry.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	tp, err := telemetry.Setup(ctx, cfg, "featurekit")
//	if err != nil {
//		return err
//	}
//	defer tp.Shutdown(context.Background())
//
//	manager := feature.NewManager(repo, feature.WithTracerProvider(tp))
//
// Tracing stays off until OTEL_ENABLED is true and an endpoint is set.
package telemetry
