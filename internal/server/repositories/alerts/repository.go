// Package alerts stores alerts and their IOCs and answers filtered lookups.
package alerts

import (
	"context"

	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts the alert and all of its IOCs and returns the new alert
	// id. Callers run it inside a transaction so the set is all-or-nothing.
	Create(ctx context.Context, alert *models.Alert) (int64, error)
	// IOCExists reports whether an IOC with this type and data was already
	// recorded for any alert from source.
	IOCExists(ctx context.Context, source, iocType, iocData string) (bool, error)
	// GetByID returns the alert with its full IOC set, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Alert, error)
	// Find returns alerts matching filter ordered by id.
	Find(ctx context.Context, filter Filter) ([]*models.Alert, error)
}
