package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("loads from json", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"server_endpoint_addr": "example:9000",
			"unread_poll_interval": "15s",
			"typing_timeout":       2000000000,
			"device_type":          "android",
		})
		os.Args = []string{"testbin", "-config", path}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, "example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 15*time.Second, cfg.UnreadPollInterval)
		assert.Equal(t, 2*time.Second, cfg.TypingTimeout)
		assert.Equal(t, "android", cfg.DeviceType)
		assert.Equal(t, "pulse.db", cfg.DatabaseFile, "missing key keeps default")
	})

	t.Run("no config flag", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerEndpointAddr: "keep"}
		parseJson(cfg)
		assert.Equal(t, "keep", cfg.ServerEndpointAddr)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
