// Package worker hosts the background loops of the identity core.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/observability/metrics"
	"github.com/yourorg/collabcore/internal/stats"
)

// StatsExporter periodically recomputes system-wide engagement stats and
// publishes them as gauges. Stats served to callers are always computed
// live; the exporter only feeds dashboards.
type StatsExporter struct {
	stats    *stats.Service
	store    domain.UserStore
	interval time.Duration
	logger   *slog.Logger
}

func NewStatsExporter(svc *stats.Service, store domain.UserStore, interval time.Duration, logger *slog.Logger) *StatsExporter {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsExporter{stats: svc, store: store, interval: interval, logger: logger}
}

// Start runs the export loop until ctx is cancelled. An export runs
// immediately on start so gauges aren't blank for a full interval.
func (e *StatsExporter) Start(ctx context.Context) {
	e.logger.Info("stats exporter started", slog.Duration("interval", e.interval))
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.export(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("stats exporter stopped")
			return
		case <-ticker.C:
			e.export(ctx)
		}
	}
}

func (e *StatsExporter) export(ctx context.Context) {
	st, err := e.stats.ForSystem(ctx)
	if err != nil {
		e.logger.Error("system stats export failed", slog.String("error", err.Error()))
		return
	}
	users, err := e.store.Count(ctx)
	if err != nil {
		e.logger.Error("user count export failed", slog.String("error", err.Error()))
		return
	}
	metrics.SetSystemStats(users, st.ChannelsExist, st.DMsExist, st.MessagesExist, st.UtilizationRate)
}
