package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pulse/internal/logging"
)

// SweepJob is one periodic cleanup task.
type SweepJob struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunSweeper runs every job once per interval until ctx is cancelled.
// Job errors are logged and do not stop the loop.
func RunSweeper(ctx context.Context, interval time.Duration, l logging.Logger, jobs ...SweepJob) {
	l = l.With("module", "sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, j := range jobs {
				if err := j.Run(ctx); err != nil {
					l.Error(ctx, "sweep failed", "job", j.Name, "error", err)
				}
			}
		}
	}
}
