package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const alertSchema = `
CREATE TABLE alerts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT NOT NULL,
    description TEXT NOT NULL
);
CREATE TABLE iocs (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    alert_id INTEGER NOT NULL REFERENCES alerts (id),
    type     TEXT NOT NULL,
    data     TEXT NOT NULL
);`

func setupAlertDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(alertSchema)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

// insertAlert writes an alert row and one IOC row per (type, data) pair.
// A nil data value violates the NOT NULL constraint on iocs.data.
func insertAlert(ctx context.Context, tx DBTX, source string, iocs ...[2]any) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO alerts (source, description) VALUES (?, 'beacon')`, source)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, ioc := range iocs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO iocs (alert_id, type, data) VALUES (?, ?, ?)`, id, ioc[0], ioc[1]); err != nil {
			return err
		}
	}
	return nil
}

func TestWithTx_CommitsAlertWithIOCs(t *testing.T) {
	db := setupAlertDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return insertAlert(ctx, tx, "edr", [2]any{"ip", "10.0.0.1"}, [2]any{"domain", "evil.example"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db, "alerts"))
	assert.Equal(t, 2, count(t, db, "iocs"))
}

func TestWithTx_RollsBackPartialAlertInsert(t *testing.T) {
	db := setupAlertDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return insertAlert(ctx, tx, "edr", [2]any{"ip", "10.0.0.1"}, [2]any{"domain", nil})
	})
	require.Error(t, err, "second IOC violates NOT NULL")
	assert.Equal(t, 0, count(t, db, "alerts"), "alert row must not survive a failed IOC insert")
	assert.Equal(t, 0, count(t, db, "iocs"))
}

func TestWithTx_ReturnsCallbackError(t *testing.T) {
	db := setupAlertDB(t)
	errDuplicate := errors.New("duplicate IOC")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertAlert(ctx, tx, "edr"); err != nil {
			return err
		}
		return errDuplicate
	})
	assert.ErrorIs(t, err, errDuplicate)
	assert.Equal(t, 0, count(t, db, "alerts"))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := setupAlertDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, count(t, db, "alerts"), "must roll back on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertAlert(ctx, tx, "edr"))
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupAlertDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.False(t, called)
}

func TestWithTx_RollbackFailureJoined(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	errCause := errors.New("insert failed")
	errConn := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errConn)

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return errCause
	})
	assert.ErrorIs(t, err, errCause)
	assert.ErrorIs(t, err, errConn)
	assert.Contains(t, err.Error(), "rollback tx")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailureWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	errConn := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errConn)

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	assert.ErrorIs(t, err, errConn)
	assert.Contains(t, err.Error(), "commit tx")
	require.NoError(t, mock.ExpectationsWereMet())
}
