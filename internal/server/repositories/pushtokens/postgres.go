package pushtokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, t *models.PushToken) error {
	query := `
		INSERT INTO push_tokens (token, user_id, device_type, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, t.Token, t.UserID, t.DeviceType); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.PushToken, error) {
	query := `
		SELECT token, user_id, device_type, updated_at
		FROM push_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PushToken
	for rows.Next() {
		var t models.PushToken
		if err := rows.Scan(&t.Token, &t.UserID, &t.DeviceType, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM push_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID, token string) error {
	query := `
		DELETE FROM push_tokens
		WHERE token = $1 AND user_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, token, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
