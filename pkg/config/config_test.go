package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	m, err := New("mcpgw", "")
	require.NoError(t, err)

	conf, err := m.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", conf.Server.Addr)
	assert.True(t, conf.Server.UseLock)
	assert.Equal(t, 350*time.Second, conf.Server.LockTimeout)
	assert.Equal(t, "2024-11-05", conf.Client.ProtocolVersion)
	assert.Equal(t, "MCApp_client", conf.Client.Name)
	assert.Equal(t, 8, conf.Client.Concurrency)
	assert.Equal(t, "models/gemini-2.0-flash", conf.Oracle.Model)
	assert.Equal(t, 40000, conf.Diagnostics.MaxPayload)
	assert.Equal(t, "noop", conf.Tracing.Exporter)
	assert.False(t, conf.Metrics.Enabled)
}

func TestNewRequiresApp(t *testing.T) {
	_, err := New("", "")
	assert.ErrorIs(t, err, ErrMissingAppName)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpgw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  access_key: sample
  tie_break: first
client:
  urls:
    - http://localhost:9001/mcp
    - http://localhost:9002/mcp
  timeout: 15s
  batch_discovery: true
  retry:
    max_retries: 2
    initial_retry_delay: 250ms
oracle:
  timezone: Asia/Tokyo
`), 0o600))

	m, err := New("mcpgw", "")
	require.NoError(t, err)
	conf, err := m.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", conf.Server.Addr)
	assert.Equal(t, "sample", conf.Server.AccessKey)
	assert.Equal(t, []string{"http://localhost:9001/mcp", "http://localhost:9002/mcp"}, conf.Client.URLs)
	assert.Equal(t, 15*time.Second, conf.Client.Timeout)
	assert.True(t, conf.Client.BatchDiscovery)
	assert.Equal(t, 2, conf.Client.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, conf.Client.Retry.InitialRetryDelay)
	assert.Equal(t, "Asia/Tokyo", conf.Oracle.Timezone)

	// untouched keys keep their defaults
	assert.Equal(t, 350*time.Second, conf.Server.LockTimeout)

	tb, err := conf.Server.TieBreakPolicy()
	require.NoError(t, err)
	assert.False(t, tb([]byte("a"), []byte("bb")))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MCPGW_SERVER_ADDR", ":7000")
	t.Setenv("MCPGW_CLIENT_URLS", "http://a/mcp,http://b/mcp")
	t.Setenv("MCPGW_CLIENT_HEADERS", "Authorization=Bearer x, X-Team=mail")
	t.Setenv("MCPGW_CLIENT_TIMEOUT", "5s")
	t.Setenv("MCPGW_SERVER_ALLOWED_ORIGINS", `["https://app.example.com"]`)

	m, err := New("mcpgw", "")
	require.NoError(t, err)
	conf, err := m.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7000", conf.Server.Addr)
	assert.Equal(t, []string{"http://a/mcp", "http://b/mcp"}, conf.Client.URLs)
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Team": "mail"}, conf.Client.Headers)
	assert.Equal(t, 5*time.Second, conf.Client.Timeout)
	assert.Equal(t, []string{"https://app.example.com"}, conf.Server.AllowedOrigins)
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	fs.Bool("debug", false, "")
	require.NoError(t, fs.Parse([]string{"--addr", ":9999"}))

	m, err := New("mcpgw", "")
	require.NoError(t, err)
	require.NoError(t, m.BindFlags(fs, map[string]string{
		"server.addr":  "addr",
		"oracle.model": "model",
	}))

	conf, err := m.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", conf.Server.Addr)
	assert.Equal(t, "models/gemini-2.0-flash", conf.Oracle.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tie break", func(c *Config) { c.Server.TieBreak = "random" }},
		{"lock timeout", func(c *Config) { c.Server.LockTimeout = -time.Second }},
		{"concurrency", func(c *Config) { c.Client.Concurrency = -1 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestTieBreakPolicies(t *testing.T) {
	for name, want := range map[string]bool{"longer": true, "first": false, "last": true, "": true} {
		tb, err := ServerConfig{TieBreak: name}.TieBreakPolicy()
		require.NoError(t, err)
		assert.Equal(t, want, tb([]byte("a"), []byte("bb")), name)
	}
}

func TestTracingProviderConfig(t *testing.T) {
	c := Default().Tracing
	c.Endpoint = "collector:4317"
	pc := c.Provider("1.2.3")
	assert.Equal(t, "1.2.3", pc.ServiceVersion)
	assert.Equal(t, "collector:4317", pc.Endpoint)
	assert.EqualValues(t, "noop", pc.ExporterType)
}
