// Package config loads runtime configuration for the Pulse client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. PULSE_* environment variables (a .env file is loaded into the
//     environment by cmd/client before this runs).
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "realtime_url": "ws://127.0.0.1:8080/realtime/v1/websocket",
//	  "unread_poll_interval": "10s",
//	  "typing_timeout": "3s",
//	  "device_type": "cli",
//	  "database_file": "pulse.db"
//	}
package config
