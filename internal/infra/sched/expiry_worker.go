package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/infra/metrics"
	"picturas-subscriptions/internal/usecase"
)

// ExpiryWorker periodically finishes lapsed subscriptions via the use case.
// The webhook path normally gets there first; the worker covers processors
// that never send a terminal event.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.FinishExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.IncSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions finished")
			}
			if err := w.subUC.RefreshStatusMetrics(ctx); err != nil {
				w.log.Warn().Err(err).Msg("status metrics refresh failed")
			}
		}
	}
}
