package interfaces

import (
	"context"
	"time"

	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/models"
)

// QuotaListener receives every quota state change, in subscription
// order. A listener that panics is isolated from the others.
type QuotaListener func(state models.QuotaState)

// QuotaConfig holds the monitor's classification thresholds and poll
// interval. Thresholds are percentages in [0,100] with
// WarningThreshold <= CriticalThreshold.
type QuotaConfig struct {
	WarningThreshold  float64
	CriticalThreshold float64
	CheckInterval     time.Duration
}

// QuotaConfigUpdate is a partial config merge; nil fields keep their
// current value.
type QuotaConfigUpdate struct {
	WarningThreshold  *float64
	CriticalThreshold *float64
	CheckInterval     *time.Duration
}

type QuotaMonitorService interface {
	// CheckStorageQuota polls the estimate provider, classifies the
	// result, stores it as current state and broadcasts it. A missing
	// provider yields the zero state without error.
	CheckStorageQuota(ctx context.Context) (models.QuotaState, error)
	// CurrentState returns the last computed state, or nil before the
	// first successful check.
	CurrentState() *models.QuotaState
	// UsagePercentage computes usage/quota as a percentage rounded to
	// two decimals; nil arguments default to the current state. A zero
	// quota yields 0.
	UsagePercentage(usageBytes, quotaBytes *int64) float64
	// ThresholdStatusFor classifies a percentage; nil defaults to the
	// current state's percentage.
	ThresholdStatusFor(percentage *float64) enum.ThresholdStatus
	// Subscribe registers a listener and returns its unsubscribe
	// function. If a current state exists the listener is invoked with
	// it immediately.
	Subscribe(listener QuotaListener) func()
	// StartMonitoring runs one immediate check and then checks on a
	// timer; nil interval uses the configured one. Calling it while
	// running replaces the schedule.
	StartMonitoring(interval *time.Duration)
	// StopMonitoring cancels the schedule; safe to call when not
	// running.
	StopMonitoring()
	// UpdateConfig merges a partial config, reclassifies the current
	// state against the new thresholds without re-polling, and
	// broadcasts only if the status changed.
	UpdateConfig(update QuotaConfigUpdate) error
	// Dispose stops monitoring and drops all subscribers; used for
	// test isolation in place of hidden module-level singletons.
	Dispose()
}
