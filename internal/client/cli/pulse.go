package cli

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/pulse/internal/filex"
)

const (
	defaultMediaType = "application/octet-stream"
	maxPulseBytes    = 50 << 20
)

func mediaTypeOf(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return defaultMediaType
}

// Pulse publishes a file as a 24 hour pulse: pulse <file>.
func (a *App) Pulse(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("pulse <file>")
	}

	data, err := filex.ReadLimited(args[0], maxPulseBytes)
	if err != nil {
		return err
	}

	mediaType := mediaTypeOf(args[0])
	p, uploadURL, err := a.api.CreatePulse(ctx, mediaType)
	if err != nil {
		return err
	}
	if err := a.uploader.Upload(ctx, uploadURL, mediaType, bytes.NewReader(data)); err != nil {
		return err
	}

	a.printf("Pulse %s is live until %s\n", p.ID, p.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

// Pulses lists every live pulse with its download link.
func (a *App) Pulses(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	list, err := a.api.ListPulses(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No live pulses\n")
		return nil
	}
	for _, p := range list {
		a.printf("  %s by %s (%s, expires %s)\n    %s\n", p.ID, p.UserID, p.MediaType,
			p.ExpiresAt.Local().Format(time.DateTime), p.MediaURL)
	}
	return nil
}
