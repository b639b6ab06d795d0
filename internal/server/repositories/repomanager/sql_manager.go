// Package repomanager provides a concrete RepositoryManager for SQLite and
// PostgreSQL, wiring together repository constructors and database
// migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/logging"
	"github.com/dmitrijs2005/alertkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends SQL-backed repository implementations for one
// dialect and exposes a schema migration hook.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
	logger  logging.Logger
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

// Alerts returns an alerts.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Alerts(db dbx.DBTX) alerts.Repository {
	return alerts.NewSQLRepository(db, m.dialect)
}

// Dialect reports the SQL dialect the manager was built for.
func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseDialect maps our dialect onto goose's name for it.
func gooseDialect(d dbx.Dialect) string {
	if d == dbx.DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// gooseLogger feeds goose's printf-style progress lines into a
// logging.Logger. Fatalf does not exit; goose's Up path returns its errors.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info(g.ctx, "migration", "detail", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(g.ctx, "migration failed", "detail", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// RunMigrations sets up goose with the embedded migrations for the manager's
// dialect and runs them against the provided database connection. goose's
// output goes to the manager's logger, or nowhere when it has none.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if m.logger != nil {
		goose.SetLogger(gooseLogger{ctx: ctx, logger: m.logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(gooseDialect(m.dialect)); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, string(m.dialect)); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for the given
// dialect. logger may be nil.
func NewSQLRepositoryManager(dialect dbx.Dialect, logger logging.Logger) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect, logger: logger}
}
