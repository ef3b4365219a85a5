// Package netx holds plain HTTP helpers used next to the gRPC client.
package netx

import (
	"context"
	"fmt"
	"io"
	"time"

	"resty.dev/v3"
)

const (
	uploadTimeout      = 2 * time.Minute
	defaultContentType = "application/octet-stream"
)

// Uploader PUTs media to presigned storage URLs.
type Uploader struct {
	client *resty.Client
}

func NewUploader() *Uploader {
	return &Uploader{client: resty.New().SetTimeout(uploadTimeout)}
}

// Upload sends body to a presigned PUT url. Any non-2xx answer is returned
// as an error carrying the response body.
func (u *Uploader) Upload(ctx context.Context, url, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put(url)
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload failed: status %d; body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}
