package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/messages"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/pulses"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/pushtokens"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Messages(db dbx.DBTX) messages.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	PushTokens(db dbx.DBTX) pushtokens.Repository
	Pulses(db dbx.DBTX) pulses.Repository
}
