package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/audit"
	"github.com/marketloft/sessiongate/internal/config"
	"github.com/marketloft/sessiongate/internal/database"
	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/repository"
)

// InstrumentFeed is the upstream dump fetcher; *kite.Client satisfies it.
type InstrumentFeed interface {
	FetchInstruments(ctx context.Context) ([]model.Instrument, error)
}

// txRunner runs a function inside one write transaction; *database.DB
// satisfies it.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type RefreshResult struct {
	Refreshed bool  `json:"refreshed"`
	Count     int64 `json:"count"`
}

type InstrumentService struct {
	db       txRunner
	repo     repository.InstrumentRepository
	feed     InstrumentFeed
	location *time.Location
	now      func() time.Time
}

func NewInstrumentService(
	db txRunner,
	repo repository.InstrumentRepository,
	feed InstrumentFeed,
	location *time.Location,
) *InstrumentService {
	return &InstrumentService{
		db:       db,
		repo:     repo,
		feed:     feed,
		location: location,
		now:      time.Now,
	}
}

// cutoff returns the most recent daily data-publication boundary in
// exchange-local time: today 08:30, or yesterday's when the clock has
// not reached 08:30 yet.
func (s *InstrumentService) cutoff() time.Time {
	now := s.now().In(s.location)
	boundary := time.Date(now.Year(), now.Month(), now.Day(),
		config.InstrumentCutoffHour, config.InstrumentCutoffMinute, 0, 0, s.location)
	if now.Before(boundary) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

// IsStale reports whether the mirror predates the current cutoff. The
// fixed-width timestamp layout makes the comparison a plain string
// compare. Every failure mode reports stale: failing toward a refresh
// beats silently serving old data.
func (s *InstrumentService) IsStale(ctx context.Context) bool {
	maxUpdatedAt, err := s.repo.MaxUpdatedAt(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("freshness check failed, treating mirror as stale")
		return true
	}
	if maxUpdatedAt == "" {
		return true
	}
	return maxUpdatedAt < s.cutoff().Format(model.TimestampLayout)
}

// Refresh replaces the whole mirror from the upstream dump inside one
// transaction. Every row carries the same updated_at, captured once at
// the start; a failed insert rolls everything back.
func (s *InstrumentService) Refresh(ctx context.Context) (*RefreshResult, error) {
	stamp := s.now().In(s.location).Format(model.TimestampLayout)

	instruments, err := s.feed.FetchInstruments(ctx)
	if err != nil {
		return nil, apperrors.Refresh(err)
	}
	if len(instruments) == 0 {
		return nil, apperrors.Refresh(fmt.Errorf("upstream dump is empty"))
	}

	for i := range instruments {
		instruments[i].UpdatedAt = stamp
	}

	var count int64
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		count, txErr = s.repo.WithTx(tx).ReplaceAll(ctx, instruments)
		return txErr
	})
	if err != nil {
		audit.Log(ctx, audit.Event{Type: audit.EventRefreshFailure})
		return nil, apperrors.Refresh(err)
	}

	log.Info().Int64("count", count).Str("updated_at", stamp).Msg("instrument mirror refreshed")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventRefreshSuccess,
		Details: map[string]interface{}{"count": count},
	})
	return &RefreshResult{Refreshed: true, Count: count}, nil
}

// EnsureFresh refreshes the mirror when it has gone stale. A failed
// refresh is logged and swallowed: queries keep serving whatever the
// mirror holds.
func (s *InstrumentService) EnsureFresh(ctx context.Context) RefreshResult {
	if !s.IsStale(ctx) {
		return RefreshResult{}
	}

	result, err := s.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("instrument refresh failed, serving existing data")
		return RefreshResult{}
	}
	return *result
}

// Query runs a filtered read against the mirror, refreshing it first
// when stale.
func (s *InstrumentService) Query(ctx context.Context, filter model.InstrumentFilter) ([]model.Instrument, error) {
	s.EnsureFresh(ctx)

	instruments, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return instruments, nil
}

// Count reports the mirror's row count.
func (s *InstrumentService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	return count, nil
}
