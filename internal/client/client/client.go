package client

import (
	"context"

	"github.com/dmitrijs2005/alertkeeper/internal/client/models"
)

// Client is the API surface the CLI depends on.
type Client interface {
	SetToken(token string)
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	ListAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error)
	GetAlert(ctx context.Context, id int64) (*models.Alert, error)
	CreateAlert(ctx context.Context, a *models.Alert) (int64, error)
}
