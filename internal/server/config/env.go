package config

import (
	"os"
	"time"
)

// lookupEnv is a seam over os.LookupEnv.
var lookupEnv = os.LookupEnv

// parseEnv overlays PULSE_* environment variables. Durations use
// time.ParseDuration syntax; unparsable values are ignored.
func parseEnv(config *Config) {
	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("PULSE_GRPC_ADDR", &config.EndpointAddrGRPC)
	str("PULSE_HTTP_ADDR", &config.EndpointAddrHTTP)
	str("PULSE_DATABASE_DSN", &config.DatabaseDSN)
	str("PULSE_SECRET_KEY", &config.SecretKey)
	dur("PULSE_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("PULSE_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	str("PULSE_FUNCTION_KEY", &config.FunctionKey)
	str("PULSE_PUSH_ENDPOINT", &config.PushEndpoint)
	str("PULSE_PUSH_ACCESS_TOKEN", &config.PushAccessToken)
	str("PULSE_S3_USER", &config.S3RootUser)
	str("PULSE_S3_PASSWORD", &config.S3RootPassword)
	str("PULSE_S3_BUCKET", &config.S3Bucket)
	str("PULSE_S3_REGION", &config.S3Region)
	str("PULSE_S3_ENDPOINT", &config.S3BaseEndpoint)
	dur("PULSE_PULSE_TTL", &config.PulseTTL)
	dur("PULSE_SWEEP_INTERVAL", &config.SweepInterval)
}
