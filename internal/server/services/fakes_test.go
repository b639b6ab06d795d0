package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/server/config"
	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
	alertsrepo "github.com/dmitrijs2005/alertkeeper/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/alertkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// newSQLiteDB returns a migrated in-memory database and a manager for it.
func newSQLiteDB(t *testing.T) (*sql.DB, *repomanager.SQLRepositoryManager) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLRepositoryManager(dbx.DialectSQLite, nil)
	require.NoError(t, m.RunMigrations(context.Background(), db))
	return db, m
}

func testConfig(secret string) *config.Config {
	return &config.Config{SecretKey: secret}
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeAlertsRepo struct {
	createID  int64
	createErr error

	exists    map[string]bool
	existsErr error

	getOut   *models.Alert
	getErr   error
	getCalls int

	findOut []*models.Alert
	findErr error
	filter  alertsrepo.Filter

	created []*models.Alert
}

func (f *fakeAlertsRepo) Create(ctx context.Context, a *models.Alert) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, a)
	return f.createID, nil
}

func (f *fakeAlertsRepo) IOCExists(ctx context.Context, source, iocType, iocData string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists[source+"|"+iocType+"|"+iocData], nil
}

func (f *fakeAlertsRepo) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeAlertsRepo) Find(ctx context.Context, filter alertsrepo.Filter) ([]*models.Alert, error) {
	f.filter = filter
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	a *fakeAlertsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Alerts(db dbx.DBTX) alertsrepo.Repository     { return m.a }
