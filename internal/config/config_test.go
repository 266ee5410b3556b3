package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  host: 0.0.0.0
  port: 8080
backend:
  base_url: https://rentals.example.com/api/v1
database:
  host: localhost
  port: 5432
  user: rentaldesk
  database: rentaldesk
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "5", cfg.Returns.LateFeePerItem)
	assert.Equal(t, "5", cfg.LateFeePerItem().String())
	assert.Equal(t, 1, cfg.Returns.DefaultDaysLate)
	assert.Equal(t, 30, cfg.Workflow.TTLMinutes)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.ReleaseStaleSubmissions)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Server.RateLimitIdleMinutes)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "", cfg.GetGRPCAddress())
	assert.Equal(t, "postgres://rentaldesk:@localhost:5432/rentaldesk?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		extra  string
		errMsg string
	}{
		{"bad late fee", "returns:\n  late_fee_per_item: abc\n", "invalid late_fee_per_item"},
		{"negative late fee", "returns:\n  late_fee_per_item: \"-1\"\n", "must not be negative"},
		{"bypass without secret", "session:\n  bypass: true\n", "dev_secret"},
		{"email without sender", "email:\n  sendgrid_api_key: SG.key\n", "from_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(minimalYAML + tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("missing backend", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  port: 8080\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend base_url is required")
	})
}

func TestParseTrustedProxies(t *testing.T) {
	nets, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.5", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.True(t, nets[0].Contains(net.ParseIP("10.20.30.40")))
	assert.True(t, nets[1].Contains(net.ParseIP("192.168.1.5")))
	assert.False(t, nets[1].Contains(net.ParseIP("192.168.1.6")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)

	yaml := strings.Replace(minimalYAML, "  port: 8080\n", "  port: 8080\n  trusted_proxies: [\"not-an-ip\"]\n", 1)
	_, err = Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trusted proxy")
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	t.Setenv("BACKEND_BASE_URL", "http://backend.internal:9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel(RouteHealth))
	assert.Equal(t, SecuritySession, GetSecurityLevel(RouteSubmitReturnWorkflow))
	assert.Equal(t, SecuritySession, GetSecurityLevel("SomethingNew"))
}
