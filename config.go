package wingtips

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-loadable tracer configuration.
type Config struct {
	// ServiceName identifies this process in logged spans.
	ServiceName string `yaml:"service_name"`
	// SampleAll controls whether new traces default to sampleable.
	// Defaults to true.
	SampleAll *bool `yaml:"sample_all"`
	// SpanLogging controls logging of completed sampleable spans.
	// Defaults to true.
	SpanLogging *bool `yaml:"span_logging"`
	// Collector configures the bundled span collector.
	Collector CollectorConfig `yaml:"collector"`
}

// CollectorConfig configures SpanCollector buffering.
type CollectorConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig reads, parses, and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "unknown"
	}
	if c.SampleAll == nil {
		v := true
		c.SampleAll = &v
	}
	if c.SpanLogging == nil {
		v := true
		c.SpanLogging = &v
	}
	if c.Collector.BufferSize == 0 {
		c.Collector.BufferSize = 1000
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.Collector.BufferSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBufferSize, c.Collector.BufferSize)
	}
	return nil
}

// NewTracerFromConfig builds a tracer from cfg. Options are applied after
// the configuration, so they may override it.
func NewTracerFromConfig(cfg *Config, opts ...Option) *Tracer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	base := []Option{
		WithServiceName(cfg.ServiceName),
	}
	if cfg.SpanLogging != nil {
		base = append(base, WithSpanLogging(*cfg.SpanLogging))
	}
	if cfg.SampleAll != nil && !*cfg.SampleAll {
		base = append(base, WithSampler(SampleNone()))
	}
	return NewTracer(append(base, opts...)...)
}
