package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "127.0.0.1:9090", "-w", "ws://x/ws", "-i", "20", "-y", "4", "-v", "ios", "-f", "x.db"},
			expected: &Config{
				ServerEndpointAddr: "127.0.0.1:9090",
				RealtimeURL:        "ws://x/ws",
				UnreadPollInterval: 20 * time.Second,
				TypingTimeout:      4 * time.Second,
				DeviceType:         "ios",
				DatabaseFile:       "x.db",
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"cmd", "-c", "conf.json", "-i", "7"},
			expected: &Config{UnreadPollInterval: 7 * time.Second},
		},
		{name: "incorrect poll interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
