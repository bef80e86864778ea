package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the complete Magpie configuration.
type Config struct {
	// Component configurations
	Warehouse WarehouseConfig `json:"warehouse" yaml:"warehouse"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	EventBus  EventBusConfig  `json:"eventBus" yaml:"event_bus"`

	// Analytics settings
	Analytics AnalyticsConfig `json:"analytics" yaml:"analytics"`

	// Output settings
	Output OutputConfig `json:"output" yaml:"output"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// AnalyticsConfig holds the business-policy knobs of the pipeline.
// Segment thresholds are policy, not data, so they live here rather
// than in scoring code.
type AnalyticsConfig struct {
	// TopN is the size of category/state revenue rankings.
	TopN int `json:"topN" yaml:"top_n"`

	// RFMTiers is the number of quantile tiers per RFM metric.
	RFMTiers int `json:"rfmTiers" yaml:"rfm_tiers"`

	// ReferenceDate overrides the RFM analysis reference date
	// (RFC 3339). Empty means max order date + one day.
	ReferenceDate string `json:"referenceDate" yaml:"reference_date"`

	// SegmentRules is the ordered segment policy. Empty means the
	// default VIP/Loyal/New/Sleeping/Potential mapping.
	SegmentRules []SegmentRule `json:"segmentRules" yaml:"segment_rules"`

	// QualifyingStatuses restricts which order statuses enter the
	// pipeline. Empty means all statuses qualify.
	QualifyingStatuses []string `json:"qualifyingStatuses" yaml:"qualifying_statuses"`
}

// OutputConfig holds chart and export destination settings.
type OutputConfig struct {
	// Dir is where charts and exports are written.
	Dir string `json:"dir" yaml:"dir"`

	// Charts toggles SVG chart rendering.
	Charts bool `json:"charts" yaml:"charts"`

	// CSV toggles CSV exports of derived tables.
	CSV bool `json:"csv" yaml:"csv"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" yaml:"service_name"`
}

// DefaultConfig returns the default configuration: local SQLite
// dataset, in-memory cache, channel bus, charts and CSV exports on.
func DefaultConfig() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Driver:     "sqlite",
			SQLitePath: "./ecommerce.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 64,
			LocalTTL:     24 * time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 256,
		},
		Analytics: AnalyticsConfig{
			TopN:         10,
			RFMTiers:     5,
			SegmentRules: DefaultSegmentRules(),
		},
		Output: OutputConfig{
			Dir:    "./out",
			Charts: true,
			CSV:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "magpie",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Analytics.TopN <= 0 {
		cfg.Analytics.TopN = 10
	}
	if cfg.Analytics.RFMTiers < 2 {
		cfg.Analytics.RFMTiers = 5
	}
	if len(cfg.Analytics.SegmentRules) == 0 {
		cfg.Analytics.SegmentRules = DefaultSegmentRules()
	}

	return cfg, nil
}
