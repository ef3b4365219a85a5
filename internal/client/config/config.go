package config

import "time"

// Config holds runtime settings for the Pulse client.
//
// Units: intervals are time.Duration; flags take whole seconds.
type Config struct {
	ServerEndpointAddr string
	RealtimeURL        string
	UnreadPollInterval time.Duration
	TypingTimeout      time.Duration
	DeviceType         string
	DatabaseFile       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RealtimeURL = "ws://127.0.0.1:8080/realtime/v1/websocket"
	c.UnreadPollInterval = 10 * time.Second
	c.TypingTimeout = 3 * time.Second
	c.DeviceType = "cli"
	c.DatabaseFile = "pulse.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
