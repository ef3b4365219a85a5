package config

import (
	"os"
	"time"
)

var lookupEnv = os.LookupEnv

// parseEnv overlays PULSE_* environment variables; unparsable durations are
// ignored.
func parseEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
			}
		}
	}

	str("PULSE_SERVER_ADDR", &cfg.ServerEndpointAddr)
	str("PULSE_REALTIME_URL", &cfg.RealtimeURL)
	dur("PULSE_UNREAD_POLL_INTERVAL", &cfg.UnreadPollInterval)
	dur("PULSE_TYPING_TIMEOUT", &cfg.TypingTimeout)
	str("PULSE_DEVICE_TYPE", &cfg.DeviceType)
	str("PULSE_DATABASE_FILE", &cfg.DatabaseFile)
}
