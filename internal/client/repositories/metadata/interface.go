// Package metadata stores small client-side key/value settings such as the
// device push token and the last signed-in user.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyDeviceToken = "device_token"
	KeyLastUser    = "last_user"
)

type Repository interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
