package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pulse/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend gRPC server
//	-w string   realtime websocket URL
//	-i int      unread poll interval in seconds
//	-y int      typing indicator timeout in seconds
//	-v string   device type reported with the push token
//	-f string   local database file
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-i", "-y", "-v", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.RealtimeURL, "w", cfg.RealtimeURL, "realtime websocket URL")
	pollInterval := fs.Int("i", int(cfg.UnreadPollInterval.Seconds()), "unread poll interval (in seconds)")
	typingTimeout := fs.Int("y", int(cfg.TypingTimeout.Seconds()), "typing indicator timeout (in seconds)")
	fs.StringVar(&cfg.DeviceType, "v", cfg.DeviceType, "device type")
	fs.StringVar(&cfg.DatabaseFile, "f", cfg.DatabaseFile, "local database file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.UnreadPollInterval = time.Duration(*pollInterval) * time.Second
	cfg.TypingTimeout = time.Duration(*typingTimeout) * time.Second
}
