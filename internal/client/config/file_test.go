package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	jsonPath := writeTemp(t, "cfg.json", `{
		"server_base_url": "https://ballot.example/api/",
		"request_timeout": "15s",
		"session_db_path": "/var/lib/ballot/session.db",
		"log_level": "debug",
		"log_file": "/var/log/ballot.log"
	}`)
	full := &Config{
		ServerBaseURL:  "https://ballot.example/api/",
		RequestTimeout: 15 * time.Second,
		SessionDBPath:  "/var/lib/ballot/session.db",
		LogLevel:       "debug",
		LogFile:        "/var/log/ballot.log",
	}

	t.Run("loads JSON from -config", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", jsonPath}

		cfg := defaults()
		parseFile(cfg)
		assert.Empty(t, cmp.Diff(full, cfg))
	})

	t.Run("loads YAML from -c", func(t *testing.T) {
		yamlPath := writeTemp(t, "cfg.yml", `
server_base_url: https://ballot.example/api/
request_timeout: 15s
session_db_path: /var/lib/ballot/session.db
log_level: debug
log_file: /var/log/ballot.log
`)
		os.Args = []string{"testbin", "-c", yamlPath}

		cfg := defaults()
		parseFile(cfg)
		assert.Empty(t, cmp.Diff(full, cfg))
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", writeTemp(t, "partial.json", `{"log_level":"error"}`)}

		cfg := defaults()
		parseFile(cfg)

		want := defaults()
		want.LogLevel = "error"
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("integer nanoseconds", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", writeTemp(t, "ns.yaml", "request_timeout: 2000000000\n")}

		cfg := defaults()
		parseFile(cfg)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := defaults()
		parseFile(cfg)
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", writeTemp(t, "bad.json", `{ this is not valid json`)}
		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("bad duration → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", writeTemp(t, "bad.yaml", "request_timeout: soon\n")}
		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
