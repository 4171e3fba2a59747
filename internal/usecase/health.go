package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"techbriefing/internal/ports"
)

// defaultFailureThreshold is the consecutive-failure count that trips
// an alert for a source.
const defaultFailureThreshold = 3

// HealthMonitor watches the run ledger and alerts when a source keeps
// failing. Sources are checked independently; one broken check never
// hides the others.
type HealthMonitor struct {
	ledger    ports.RunLedger
	notifier  ports.Notifier
	sources   []string
	threshold int
	logger    *slog.Logger
}

// NewHealthMonitor wires the monitor for the given source names.
func NewHealthMonitor(ledger ports.RunLedger, notifier ports.Notifier, sources []string, threshold int, logger *slog.Logger) *HealthMonitor {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &HealthMonitor{
		ledger:    ledger,
		notifier:  notifier,
		sources:   sources,
		threshold: threshold,
		logger:    logger,
	}
}

// Execute checks every source once and returns the sources currently
// at or beyond the failure threshold.
func (uc *HealthMonitor) Execute(ctx context.Context) []string {
	var unhealthy []string

	for _, source := range uc.sources {
		failures, err := uc.ledger.CountConsecutiveFailures(ctx, source)
		if err != nil {
			uc.error("health check failed", "source", source, "error", err)
			continue
		}
		if failures < uc.threshold {
			continue
		}

		unhealthy = append(unhealthy, source)
		title := fmt.Sprintf("%s collection failing", source)
		message := fmt.Sprintf("%d consecutive failed runs for %s, check the source adapter and session state", failures, source)
		if err := uc.notifier.SendAlert(ctx, title, message); err != nil {
			uc.error("health alert delivery failed", "source", source, "error", err)
		}
	}

	return unhealthy
}

func (uc *HealthMonitor) error(msg string, args ...any) {
	if uc.logger != nil {
		uc.logger.Error(msg, args...)
	}
}
