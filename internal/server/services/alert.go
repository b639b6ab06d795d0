package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/common"
	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/repomanager"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ListQuery holds the optional filters accepted by AlertService.List.
// Empty strings and a nil Days mean "no filter".
type ListQuery struct {
	User    string
	IOCType string
	IOCData string
	Days    *int
}

// AlertService stores alerts after checking their IOCs for duplicates and
// serves lookups. Alerts never change once stored, so lookups by id are
// served from an LRU cache when one is configured.
type AlertService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *lru.Cache[int64, *models.Alert]
	now         func() time.Time
}

// NewAlertService constructs an AlertService. A cacheSize of 0 disables the
// by-id cache.
func NewAlertService(db *sql.DB, m repomanager.RepositoryManager, cacheSize int) (*AlertService, error) {
	s := &AlertService{db: db, repomanager: m, now: time.Now}
	if cacheSize > 0 {
		c, err := lru.New[int64, *models.Alert](cacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

// Create stores alert with its IOCs and returns the new id. The alert is
// rejected as a whole with common.ErrorDuplicateIOC if it repeats an IOC or
// if any of its IOCs was already recorded for the same source.
func (s *AlertService) Create(ctx context.Context, alert *models.Alert) (int64, error) {
	type key struct{ typ, data string }
	seen := make(map[key]struct{}, len(alert.IOCs))
	for _, ioc := range alert.IOCs {
		k := key{ioc.Type, ioc.Data}
		if _, dup := seen[k]; dup {
			metrics.DuplicateIOCsRejected.Inc()
			return 0, fmt.Errorf("%w: %s %q repeated in alert", common.ErrorDuplicateIOC, ioc.Type, ioc.Data)
		}
		seen[k] = struct{}{}
	}

	// The existence check and the insert below are not atomic. Two concurrent
	// alerts from one source carrying the same IOC can both pass; no unique
	// constraint backs this rule.
	repo := s.repomanager.Alerts(s.db)
	for _, ioc := range alert.IOCs {
		exists, err := repo.IOCExists(ctx, alert.Source, ioc.Type, ioc.Data)
		if err != nil {
			return 0, fmt.Errorf("error checking IOC: %w", err)
		}
		if exists {
			metrics.DuplicateIOCsRejected.Inc()
			return 0, fmt.Errorf("%w: %s %q already recorded for source %q",
				common.ErrorDuplicateIOC, ioc.Type, ioc.Data, alert.Source)
		}
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		id, err = s.repomanager.Alerts(tx).Create(ctx, alert)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error creating alert: %w", err)
	}

	metrics.AlertsCreated.Inc()
	return id, nil
}

// Get returns one alert with its full IOC set, or common.ErrorNotFound.
// The returned value may be shared with the cache and must not be modified.
func (s *AlertService) Get(ctx context.Context, id int64) (*models.Alert, error) {
	if s.cache != nil {
		if a, ok := s.cache.Get(id); ok {
			return a, nil
		}
	}

	a, err := s.repomanager.Alerts(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading alert %d: %w", id, err)
	}

	if s.cache != nil {
		s.cache.Add(id, a)
	}
	return a, nil
}

// List returns alerts matching q, ordered by id. A non-nil Days keeps alerts
// stamped at or after now minus that many days. Zero means from now on and a
// negative value points into the future; both are valid and usually match
// nothing.
func (s *AlertService) List(ctx context.Context, q ListQuery) ([]*models.Alert, error) {
	f := alerts.Filter{User: q.User, IOCType: q.IOCType, IOCData: q.IOCData}
	if q.Days != nil {
		f.Since = s.now().Add(-time.Duration(*q.Days) * 24 * time.Hour)
	}

	res, err := s.repomanager.Alerts(s.db).Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	return res, nil
}
