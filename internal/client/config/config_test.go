package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	return &Config{
		ServerBaseURL:  "http://localhost:5001/",
		RequestTimeout: 10 * time.Second,
		SessionDBPath:  "session.db",
		LogLevel:       "info",
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Empty(t, cmp.Diff(defaults(), &c))
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTemp(t, "cfg.yaml", `
server_base_url: http://file:5001/
request_timeout: 30s
log_level: debug
`)
	os.Args = []string{"testbin", "-c", path, "-l", "warn"}

	cfg := LoadConfig()

	want := defaults()
	want.ServerBaseURL = "http://file:5001/"
	want.RequestTimeout = 30 * time.Second
	want.LogLevel = "warn"
	assert.Empty(t, cmp.Diff(want, cfg))
}
