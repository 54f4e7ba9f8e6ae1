package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	shutdownTimeout    = 5 * time.Second

	// InstrumentationName is the tracer name used by evwrap wrappers.
	InstrumentationName = "github.com/rise-and-shine/evwrap"
)

// Config holds the configuration for the tracing system.
type Config struct {
	// Disable, if true, installs a no-op tracer provider.
	Disable bool `yaml:"disable" default:"false"`

	// SampleRate is the fraction of traces sampled, between 0.0 and 1.0.
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1" default:"1"`

	// ExporterHost is the hostname of the OTLP collector.
	ExporterHost string `yaml:"exporter_host" validate:"required_if=Disable false"`

	// ExporterPort is the gRPC port of the OTLP collector.
	ExporterPort int `yaml:"exporter_port" validate:"required_if=Disable false"`

	// Tags are added as resource attributes to all spans.
	Tags map[string]string `yaml:"tags"`
}
