package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/alertkeeper/internal/common"
	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, alert *models.Alert) (int64, error) {
	query :=
		`INSERT INTO alerts (source, user_name, description, timestamp)
		 VALUES (?, ?, ?, ?)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, query),
		alert.Source, alert.User, alert.Description, alert.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	iocQuery := dbx.Rebind(r.dialect,
		`INSERT INTO iocs (alert_id, type, data)
		 VALUES (?, ?, ?)
		 `)

	for _, ioc := range alert.IOCs {
		if _, err := r.db.ExecContext(ctx, iocQuery, id, ioc.Type, ioc.Data); err != nil {
			return 0, fmt.Errorf("db error: %w", err)
		}
	}

	return id, nil
}

func (r *SQLRepository) IOCExists(ctx context.Context, source, iocType, iocData string) (bool, error) {
	query :=
		`SELECT a.id FROM alerts a
		 JOIN iocs i ON a.id = i.alert_id
		 WHERE a.source = ? AND i.type = ? AND i.data = ?
		 LIMIT 1
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, query), source, iocType, iocData).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return true, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	query :=
		`SELECT id, source, user_name, description, timestamp FROM alerts
		 WHERE id = ?
		 `

	alert := &models.Alert{}
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, query), id).
		Scan(&alert.ID, &alert.Source, &alert.User, &alert.Description, &alert.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	iocQuery :=
		`SELECT id, alert_id, type, data FROM iocs
		 WHERE alert_id = ?
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, dbx.Rebind(r.dialect, iocQuery), id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	alert.IOCs = []models.IOC{}
	for rows.Next() {
		var ioc models.IOC
		if err := rows.Scan(&ioc.ID, &ioc.AlertID, &ioc.Type, &ioc.Data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		alert.IOCs = append(alert.IOCs, ioc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return alert, nil
}

func (r *SQLRepository) Find(ctx context.Context, filter Filter) ([]*models.Alert, error) {
	query, args, err := BuildFindQuery(r.dialect, filter.Predicates())
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Alert{}
	var current *models.Alert
	for rows.Next() {
		var (
			a                models.Alert
			iocID            sql.NullInt64
			iocType, iocData sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Source, &a.User, &a.Description, &a.Timestamp,
			&iocID, &iocType, &iocData); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		// rows arrive ordered by alert id, one per IOC
		if current == nil || current.ID != a.ID {
			a.IOCs = []models.IOC{}
			current = &a
			result = append(result, current)
		}
		if iocID.Valid {
			current.IOCs = append(current.IOCs, models.IOC{
				ID: iocID.Int64, AlertID: a.ID, Type: iocType.String, Data: iocData.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
