package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/pulse/internal/flagx"
	"github.com/dmitrijs2005/pulse/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// use timex.Duration so both "10s" and integer nanoseconds parse.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RealtimeURL        string         `json:"realtime_url"`
	UnreadPollInterval timex.Duration `json:"unread_poll_interval"`
	TypingTimeout      timex.Duration `json:"typing_timeout"`
	DeviceType         string         `json:"device_type"`
	DatabaseFile       string         `json:"database_file"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Missing keys keep their current value. Read or unmarshal errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, c.ServerEndpointAddr)
	setString(&cfg.RealtimeURL, c.RealtimeURL)
	setDuration(&cfg.UnreadPollInterval, c.UnreadPollInterval)
	setDuration(&cfg.TypingTimeout, c.TypingTimeout)
	setString(&cfg.DeviceType, c.DeviceType)
	setString(&cfg.DatabaseFile, c.DatabaseFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
