package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/service"
)

// refreshTimeout bounds one refresh attempt; the upstream dump runs to
// tens of megabytes.
const refreshTimeout = 5 * time.Minute

// refresher is the slice of InstrumentService the job needs.
type refresher interface {
	EnsureFresh(ctx context.Context) service.RefreshResult
}

// RefreshJob keeps the instrument mirror fresh across the daily cutoff
// without waiting for a query to trip the staleness check.
type RefreshJob struct {
	instruments refresher
	interval    time.Duration
	done        chan struct{}
}

func NewRefreshJob(instruments refresher, interval time.Duration) *RefreshJob {
	return &RefreshJob{
		instruments: instruments,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *RefreshJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("instrument refresh job started")
}

func (j *RefreshJob) Stop() {
	close(j.done)
	log.Info().Msg("instrument refresh job stopped")
}

func (j *RefreshJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.refresh()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.refresh()
		}
	}
}

func (j *RefreshJob) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	result := j.instruments.EnsureFresh(ctx)
	if result.Refreshed {
		log.Info().Int64("count", result.Count).Msg("scheduled instrument refresh completed")
	}
}
