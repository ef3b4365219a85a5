// Package pulses stores 24-hour stories whose media lives in object storage.
package pulses

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Pulse) (*models.Pulse, error)
	// ListActive returns pulses that have not expired at now, newest first.
	ListActive(ctx context.Context, now time.Time) ([]models.Pulse, error)
	// DeleteExpired removes expired rows and returns their media keys so the
	// objects can be removed too.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}
