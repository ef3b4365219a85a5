package notifications

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, actor_id, type, post_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`
	postID := sql.NullString{String: n.PostID, Valid: n.PostID != ""}

	var isRead sql.NullBool
	if err := r.db.QueryRowContext(ctx, query, n.UserID, n.ActorID, n.Type, postID, n.Text).
		Scan(&n.ID, &isRead, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if isRead.Valid {
		n.IsRead = &isRead.Bool
	}
	return n, nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1 AND is_read IS NOT TRUE
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND is_read IS NOT TRUE
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
