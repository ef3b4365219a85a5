package notifications

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	q := `(?s)^INSERT\s+INTO\s+notifications\s*\(user_id,\s*actor_id,\s*type,\s*post_id,\s*text\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*is_read,\s*created_at$`
	now := time.Now()

	t.Run("with post", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).
			WithArgs("owner", "actor", "like", sql.NullString{String: "p1", Valid: true}, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_read", "created_at"}).AddRow("n1", false, now))

		got, err := repo.Create(context.Background(), &models.Notification{UserID: "owner", ActorID: "actor", Type: "like", PostID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, "n1", got.ID)
		require.NotNil(t, got.IsRead)
		assert.False(t, *got.IsRead)
	})

	t.Run("follow has no post", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).
			WithArgs("owner", "actor", "follow", sql.NullString{}, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_read", "created_at"}).AddRow("n2", nil, now))

		got, err := repo.Create(context.Background(), &models.Notification{UserID: "owner", ActorID: "actor", Type: "follow"})
		require.NoError(t, err)
		assert.Nil(t, got.IsRead)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("down"))

		_, err := repo.Create(context.Background(), &models.Notification{UserID: "owner", ActorID: "actor", Type: "follow"})
		assert.Error(t, err)
	})
}

func TestCountUnread(t *testing.T) {
	q := `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+notifications\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+is_read\s+IS\s+NOT\s+TRUE$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(q).WithArgs("me").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(q).WithArgs("me").WillReturnError(errors.New("boom"))

	n, err := repo.CountUnread(context.Background(), "me")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.CountUnread(context.Background(), "me")
	assert.Error(t, err)
}

func TestMarkAllRead(t *testing.T) {
	q := `(?s)^UPDATE\s+notifications\s+SET\s+is_read\s*=\s*true\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+is_read\s+IS\s+NOT\s+TRUE$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("me").WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.MarkAllRead(context.Background(), "me")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
