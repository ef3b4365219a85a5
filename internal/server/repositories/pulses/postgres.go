package pulses

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Pulse) (*models.Pulse, error) {
	query := `
		INSERT INTO pulses (user_id, media_key, media_type, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.UserID, p.MediaKey, p.MediaType, p.ExpiresAt).
		Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]models.Pulse, error) {
	query := `
		SELECT id, user_id, media_key, media_type, created_at, expires_at
		FROM pulses
		WHERE expires_at > $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Pulse
	for rows.Next() {
		var p models.Pulse
		if err := rows.Scan(&p.ID, &p.UserID, &p.MediaKey, &p.MediaType, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		DELETE FROM pulses
		WHERE expires_at <= $1
		RETURNING media_key
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}
