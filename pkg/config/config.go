// Package config loads gateway settings from a file, the environment and
// command line flags.
//
// Values are layered by viper: flags bound with BindFlags win over
// environment variables (MCPGW_SERVER_ADDR for server.addr), which win over
// the config file, which wins over Default.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix is the prefix of environment overrides
const DefaultEnvPrefix = "MCPGW"

var (
	ErrMissingAppName = errors.New("config: app name not specified")
)

// Manager wraps a viper instance configured for the gateway
type Manager struct {
	App       string
	EnvPrefix string

	Viper *viper.Viper
}

// New creates a manager with defaults registered and environment lookups
// enabled. An empty envPrefix uses DefaultEnvPrefix.
func New(app, envPrefix string) (*Manager, error) {
	if app == "" {
		return nil, ErrMissingAppName
	}
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(envPrefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	return &Manager{App: app, EnvPrefix: envPrefix, Viper: v}, nil
}

// BindFlags binds command line flags to config keys. Keys map to flag
// names; flags that do not exist in fs are skipped.
func (m *Manager) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := m.Viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load decodes the current settings into a Config. When file is not
// empty it is read first; its format follows the extension.
func (m *Manager) Load(file string) (*Config, error) {
	if file != "" {
		m.Viper.SetConfigFile(file)
		if err := m.Viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	conf := Default()
	if err := m.Viper.Unmarshal(conf, decoderConfig()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Set overrides a key for the lifetime of the manager
func (m *Manager) Set(key string, value interface{}) {
	m.Viper.Set(key, value)
}

// Settings returns all settings as a nested map
func (m *Manager) Settings() map[string]interface{} {
	return m.Viper.AllSettings()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.access_key", d.Server.AccessKey)
	v.SetDefault("server.use_lock", d.Server.UseLock)
	v.SetDefault("server.lock_timeout", d.Server.LockTimeout)
	v.SetDefault("server.catalog", d.Server.Catalog)
	v.SetDefault("server.tie_break", d.Server.TieBreak)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("client.urls", d.Client.URLs)
	v.SetDefault("client.protocol_version", d.Client.ProtocolVersion)
	v.SetDefault("client.name", d.Client.Name)
	v.SetDefault("client.version", d.Client.Version)
	v.SetDefault("client.batch_discovery", d.Client.BatchDiscovery)
	v.SetDefault("client.concurrency", d.Client.Concurrency)
	v.SetDefault("client.timeout", d.Client.Timeout)
	// maps default to "" so that the keys exist for environment lookups
	v.SetDefault("client.headers", "")
	v.SetDefault("client.catalog", d.Client.Catalog)
	v.SetDefault("client.retry.max_retries", d.Client.Retry.MaxRetries)
	v.SetDefault("client.retry.initial_retry_delay", d.Client.Retry.InitialRetryDelay)
	v.SetDefault("client.retry.max_retry_delay", d.Client.Retry.MaxRetryDelay)
	v.SetDefault("client.retry.retry_backoff_factor", d.Client.Retry.RetryBackoffFactor)
	v.SetDefault("client.circuit_breaker.enabled", d.Client.CircuitBreaker.Enabled)
	v.SetDefault("client.circuit_breaker.failure_threshold", d.Client.CircuitBreaker.FailureThreshold)
	v.SetDefault("client.circuit_breaker.success_threshold", d.Client.CircuitBreaker.SuccessThreshold)
	v.SetDefault("client.circuit_breaker.timeout", d.Client.CircuitBreaker.Timeout)

	v.SetDefault("oracle.api_key", d.Oracle.APIKey)
	v.SetDefault("oracle.model", d.Oracle.Model)
	v.SetDefault("oracle.base_url", d.Oracle.BaseURL)
	v.SetDefault("oracle.timezone", d.Oracle.Timezone)

	v.SetDefault("diagnostics.enabled", d.Diagnostics.Enabled)
	v.SetDefault("diagnostics.path", d.Diagnostics.Path)
	v.SetDefault("diagnostics.max_payload", d.Diagnostics.MaxPayload)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.no_color", d.Log.NoColor)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.headers", "")
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
}
