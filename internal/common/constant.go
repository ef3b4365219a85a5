// Package common contains shared constants and sentinel errors used across
// Pulse components.
package common

// AccessTokenHeaderName is the gRPC metadata key (and realtime query
// parameter) used to carry the access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries bearer credentials on HTTP endpoints: the
// function key for push relay calls, the access token for the realtime hub.
const AuthorizationHeaderName = "Authorization"
