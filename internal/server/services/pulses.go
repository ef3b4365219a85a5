package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	sc "github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// PulseWithURL is a pulse plus a short-lived download link for its media.
type PulseWithURL struct {
	models.Pulse
	MediaURL string
}

// PulseService manages 24-hour stories whose media is uploaded straight to
// object storage through presigned URLs.
type PulseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewPulseService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, l logging.Logger) *PulseService {
	return &PulseService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      l.With("module", "pulses"),
		now:         time.Now,
	}
}

func storageKey(userID string) string {
	return fmt.Sprintf("pulses/%s/%v", userID, uuid.New())
}

func (s *PulseService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (s *PulseService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	c, err := s.getS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return newS3PresignClient(c), nil
}

// Create reserves a storage key, presigns an upload for it and stores the
// pulse row. The caller uploads the media to the returned URL.
func (s *PulseService) Create(ctx context.Context, userID, mediaType string) (*models.Pulse, string, error) {
	if !strings.HasPrefix(mediaType, "image/") && !strings.HasPrefix(mediaType, "video/") {
		return nil, "", common.ErrorValidation
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("error creating presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := storageKey(userID)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &mediaType,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, "", fmt.Errorf("error presigning upload: %w", err)
	}

	p, err := s.repomanager.Pulses(s.db).Create(ctx, &models.Pulse{
		UserID:    userID,
		MediaKey:  key,
		MediaType: mediaType,
		ExpiresAt: s.now().Add(s.config.PulseTTL),
	})
	if err != nil {
		return nil, "", fmt.Errorf("error creating pulse: %w", err)
	}

	return p, req.URL, nil
}

// List returns active pulses with download URLs. Pulses whose URL cannot be
// presigned are returned without one.
func (s *PulseService) List(ctx context.Context) ([]PulseWithURL, error) {
	items, err := s.repomanager.Pulses(s.db).ListActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("error listing pulses: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	out := make([]PulseWithURL, 0, len(items))
	for _, p := range items {
		key := p.MediaKey
		item := PulseWithURL{Pulse: p}
		req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key}, s3.WithPresignExpires(presignExpiry))
		if err != nil {
			s.logger.Warn(ctx, "presign get failed", "pulse_id", p.ID, "error", err)
		} else {
			item.MediaURL = req.URL
		}
		out = append(out, item)
	}
	return out, nil
}

// Sweep deletes expired pulses and their objects. Object deletion failures
// are logged; the rows are already gone.
func (s *PulseService) Sweep(ctx context.Context) error {
	keys, err := s.repomanager.Pulses(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("error deleting expired pulses: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	c, err := s.getS3Client(ctx)
	if err != nil {
		return fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	for _, k := range keys {
		key := k
		if _, err := deleteObject(c, ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &key}); err != nil {
			s.logger.Warn(ctx, "deleting pulse media failed", "key", key, "error", err)
		}
	}
	s.logger.Info(ctx, "expired pulses swept", "count", len(keys))
	return nil
}
