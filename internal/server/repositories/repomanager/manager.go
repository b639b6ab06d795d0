package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Alerts(db dbx.DBTX) alerts.Repository
}
