package instrumentation

import "os"

// Exporter selects how metrics leave the process.
type Exporter string

const (
	// ExporterPrometheus exposes metrics for pull-based scraping via the
	// dedicated metrics server.
	ExporterPrometheus Exporter = "prometheus"

	// ExporterNone disables metrics entirely.
	ExporterNone Exporter = "none"
)

// Config holds instrumentation configuration.
type Config struct {
	// Enabled toggles the whole pipeline. Disabled instrumentation yields
	// no-op recorders, so call sites never need nil checks.
	Enabled bool

	// ServiceName identifies the service in exported metrics.
	ServiceName string

	// ServiceVersion is the build version, set from the release pipeline.
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname when empty.
	ServiceInstanceID string

	// MetricsExporter selects the export mechanism.
	MetricsExporter Exporter
}

// DefaultConfig returns the default instrumentation configuration, with
// environment overrides applied.
func DefaultConfig() Config {
	cfg := Config{
		Enabled:         true,
		ServiceName:     "ticktick-mcp",
		ServiceVersion:  "dev",
		MetricsExporter: ExporterPrometheus,
	}
	if os.Getenv("INSTRUMENTATION_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("METRICS_EXPORTER"); v != "" {
		cfg.MetricsExporter = Exporter(v)
	}
	if cfg.MetricsExporter == ExporterNone {
		cfg.Enabled = false
	}
	return cfg
}
