// Package client talks to the Pulse backend.
//
// GRPCClient implements Client over the pulse.PulseService gRPC API. It
// injects the session's access token into every call, rotates the token
// pair once when the server answers "token expired" and retries, and drives
// the session: Login signs in, Logout and a rejected refresh sign out.
// gRPC status codes are mapped to the sentinel errors in errors.go.
//
// InitDatabase and RunMigrations bootstrap the local SQLite store used for
// client-side metadata such as the device push token.
package client
