package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
	"github.com/ajitpratap0/mcp-gateway/pkg/server"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

// Config is the complete gateway configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server" json:"server"`
	Client      ClientConfig      `mapstructure:"client" json:"client"`
	Oracle      OracleConfig      `mapstructure:"oracle" json:"oracle"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" json:"diagnostics"`
	Log         LogConfig         `mapstructure:"log" json:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics" json:"metrics"`
	Tracing     TracingConfig     `mapstructure:"tracing" json:"tracing"`
}

// ServerConfig configures the gateway server
type ServerConfig struct {
	Addr      string `mapstructure:"addr" json:"addr"`
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	// UseLock serializes every method, not only the lifecycle set
	UseLock     bool          `mapstructure:"use_lock" json:"use_lock"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" json:"lock_timeout"`
	// Catalog is a YAML file or a doublestar glob of files
	Catalog        string   `mapstructure:"catalog" json:"catalog"`
	TieBreak       string   `mapstructure:"tie_break" json:"tie_break"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
}

// ClientConfig configures sessions against remote MCP servers
type ClientConfig struct {
	URLs            []string                       `mapstructure:"urls" json:"urls"`
	ProtocolVersion string                         `mapstructure:"protocol_version" json:"protocol_version"`
	Name            string                         `mapstructure:"name" json:"name"`
	Version         string                         `mapstructure:"version" json:"version"`
	BatchDiscovery  bool                           `mapstructure:"batch_discovery" json:"batch_discovery"`
	Concurrency     int                            `mapstructure:"concurrency" json:"concurrency"`
	Timeout         time.Duration                  `mapstructure:"timeout" json:"timeout"`
	Headers         map[string]string              `mapstructure:"headers" json:"headers"`
	Retry           transport.RetryConfig          `mapstructure:"retry" json:"retry"`
	CircuitBreaker  transport.CircuitBreakerConfig `mapstructure:"circuit_breaker" json:"circuit_breaker"`
	// Catalog binds catalog tools directly instead of over the wire
	Catalog string `mapstructure:"catalog" json:"catalog"`
}

// OracleConfig configures the language model
type OracleConfig struct {
	APIKey   string `mapstructure:"api_key" json:"-"`
	Model    string `mapstructure:"model" json:"model"`
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
	Timezone string `mapstructure:"timezone" json:"timezone"`
}

// DiagnosticsConfig configures the diagnostic trail
type DiagnosticsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Path is an SQLite database file
	Path       string `mapstructure:"path" json:"path"`
	MaxPayload int    `mapstructure:"max_payload" json:"max_payload"`
}

// LogConfig configures logging
type LogConfig struct {
	Level   string `mapstructure:"level" json:"level"`
	Format  string `mapstructure:"format" json:"format"`
	NoColor bool   `mapstructure:"no_color" json:"no_color"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing
type TracingConfig struct {
	Exporter    string            `mapstructure:"exporter" json:"exporter"`
	Endpoint    string            `mapstructure:"endpoint" json:"endpoint"`
	Headers     map[string]string `mapstructure:"headers" json:"headers"`
	Insecure    bool              `mapstructure:"insecure" json:"insecure"`
	SampleRate  float64           `mapstructure:"sample_rate" json:"sample_rate"`
	Environment string            `mapstructure:"environment" json:"environment"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			UseLock:      true,
			LockTimeout:  server.DefaultLockTimeout,
			Catalog:      "catalog.yaml",
			TieBreak:     "longer",
			MaxBodyBytes: server.DefaultMaxBodyBytes,

			AllowedOrigins: []string{},
		},
		Client: ClientConfig{
			URLs:            []string{},
			ProtocolVersion: protocol.DefaultProtocolVersion,
			Name:            "MCApp_client",
			Version:         "1.0.0",
			Concurrency:     transport.DefaultConcurrency,
			Timeout:         transport.DefaultTimeout,
			Headers:         map[string]string{},
		},
		Oracle: OracleConfig{
			Model:   oracle.DefaultModel,
			BaseURL: oracle.DefaultBaseURL,
		},
		Diagnostics: DiagnosticsConfig{
			Path:       "mcpgw-diagnostics.db",
			MaxPayload: diagnostics.MaxPayloadLen,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "mcp",
		},
		Tracing: TracingConfig{
			Exporter:   string(observability.ExporterTypeNoop),
			SampleRate: 1.0,
			Headers:    map[string]string{},
		},
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if _, err := c.Server.TieBreakPolicy(); err != nil {
		return err
	}
	if c.Server.LockTimeout < 0 {
		return fmt.Errorf("server.lock_timeout must not be negative")
	}
	if c.Client.Concurrency < 0 {
		return fmt.Errorf("client.concurrency must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	return nil
}

// TieBreakPolicy maps the tie_break setting to a catalog policy
func (s ServerConfig) TieBreakPolicy() (catalog.TieBreak, error) {
	switch s.TieBreak {
	case "", "longer":
		return catalog.TieBreakLonger, nil
	case "first":
		return catalog.TieBreakFirst, nil
	case "last":
		return catalog.TieBreakLast, nil
	}
	return nil, fmt.Errorf("server.tie_break: unknown policy %q", s.TieBreak)
}

// Provider converts the settings for observability.NewTracingProvider
func (t TracingConfig) Provider(serviceVersion string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    observability.TracerName,
		ServiceVersion: serviceVersion,
		Environment:    t.Environment,
		ExporterType:   observability.ExporterType(t.Exporter),
		Endpoint:       t.Endpoint,
		Headers:        t.Headers,
		Insecure:       t.Insecure,
		SampleRate:     t.SampleRate,
		SetGlobal:      true,
	}
}
