package messages

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

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, is_read, created_at
	`
	var isRead sql.NullBool
	if err := r.db.QueryRowContext(ctx, query, m.SenderID, m.ReceiverID, m.Text).
		Scan(&m.ID, &isRead, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if isRead.Valid {
		m.IsRead = &isRead.Bool
	}
	return m, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = true
		WHERE receiver_id = $1 AND sender_id = $2 AND is_read IS NOT TRUE
	`
	res, err := r.db.ExecContext(ctx, query, receiverID, senderID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND is_read IS NOT TRUE
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, receiverID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
