package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/observability/metrics"
	"github.com/yourorg/collabcore/internal/reliability/circuitbreaker"
	"github.com/yourorg/collabcore/internal/reliability/retry"
)

// Dispatcher wraps a sink with retries and a circuit breaker. It implements
// domain.Notifier itself, so the reset workflow only ever sees one interface.
type Dispatcher struct {
	sink    domain.Notifier
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher around sink.
func NewDispatcher(sink domain.Notifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:    sink,
		retry:   retry.DefaultConfig(),
		breaker: circuitbreaker.New(5, 2, 30*time.Second),
		logger:  logger,
	}
	d.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("notification sink breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return d
}

// NotifyResetCode delivers the code through the sink, retrying transient
// failures. When the breaker is open the attempt is skipped outright.
func (d *Dispatcher) NotifyResetCode(ctx context.Context, email, code string) error {
	if !d.breaker.Allow() {
		metrics.ObserveResetNotification("skipped")
		return fmt.Errorf("notification sink unavailable")
	}
	err := retry.Do(ctx, d.retry, d.logger, "notify_reset_code", func(ctx context.Context) error {
		return d.sink.NotifyResetCode(ctx, email, code)
	})
	if err != nil {
		d.breaker.RecordFailure()
		metrics.ObserveResetNotification("error")
		return err
	}
	d.breaker.RecordSuccess()
	metrics.ObserveResetNotification("ok")
	return nil
}
