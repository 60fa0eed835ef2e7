package telemetry

import "time"

type Config struct {
	Enabled       bool          `env:"OTEL_ENABLED" envDefault:"false"`                // Enabled turns span export on.
	Endpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`                    // Endpoint is the OTLP/HTTP collector URL.
	Insecure      bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"` // Insecure sends spans over plain HTTP.
	SampleRatio   float64       `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1"`       // SampleRatio is the share of root spans kept.
	ExportTimeout time.Duration `env:"OTEL_EXPORTER_OTLP_TIMEOUT" envDefault:"10s"`    // ExportTimeout bounds a single export.
	ServiceName   string        `env:"OTEL_SERVICE_NAME"`                              // ServiceName overrides the service passed to Setup.
}
