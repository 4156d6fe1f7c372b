package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/utils"
)

type fakeEstimateProvider struct {
	estimate *models.StorageEstimate
	err      error
	// failFirst makes only the first N calls return err; zero means
	// every call fails when err is set.
	failFirst int64
	calls     atomic.Int64
}

func (f *fakeEstimateProvider) Estimate(ctx context.Context) (*models.StorageEstimate, error) {
	n := f.calls.Add(1)
	if f.err != nil && (f.failFirst == 0 || n <= f.failFirst) {
		return nil, f.err
	}
	return f.estimate, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newMonitor(t *testing.T, provider interfaces.StorageEstimateProvider) interfaces.QuotaMonitorService {
	monitor, err := NewQuotaMonitor(provider, interfaces.QuotaConfig{
		WarningThreshold:  80,
		CriticalThreshold: 90,
	}, getLogger())
	require.NoError(t, err)
	return monitor
}

func TestNewQuotaMonitor_RejectsBadThresholds(t *testing.T) {
	// Arrange
	cases := []interfaces.QuotaConfig{
		{WarningThreshold: -1, CriticalThreshold: 90},
		{WarningThreshold: 80, CriticalThreshold: 101},
		{WarningThreshold: 95, CriticalThreshold: 90},
	}

	for _, cfg := range cases {
		// Act
		monitor, err := NewQuotaMonitor(nil, cfg, getLogger())

		// Assert
		assert.Error(t, err)
		assert.Nil(t, monitor)
	}
}

func TestQuotaMonitor_CheckStorageQuota(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 800, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act
	state, err := monitor.CheckStorageQuota(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(800), state.UsageBytes)
	assert.Equal(t, int64(1000), state.QuotaBytes)
	assert.Equal(t, 80.0, state.Percentage)
	assert.Equal(t, enum.ThresholdWarning, state.Status)
	assert.False(t, state.LastChecked.IsZero())

	current := monitor.CurrentState()
	require.NotNil(t, current)
	assert.Equal(t, state, *current)
}

func TestQuotaMonitor_CheckStorageQuota_Critical(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 950, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act
	state, err := monitor.CheckStorageQuota(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 95.0, state.Percentage)
	assert.Equal(t, enum.ThresholdCritical, state.Status)
}

func TestQuotaMonitor_CheckStorageQuota_NoProvider(t *testing.T) {
	// Arrange
	monitor := newMonitor(t, nil)
	defer monitor.Dispose()

	received := 0
	monitor.Subscribe(func(state models.QuotaState) {
		received++
	})

	// Act
	state, err := monitor.CheckStorageQuota(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.UsageBytes)
	assert.Equal(t, enum.ThresholdNormal, state.Status)
	assert.False(t, state.LastChecked.IsZero())

	// Degraded checks are not stored and not broadcast
	assert.Nil(t, monitor.CurrentState())
	assert.Equal(t, 0, received)
}

func TestQuotaMonitor_CheckStorageQuota_ProviderError(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{err: errors.New("statfs failed")}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act
	_, err := monitor.CheckStorageQuota(context.Background())

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "storage estimate failed")
	assert.Nil(t, monitor.CurrentState())
}

func TestQuotaMonitor_UsagePercentage(t *testing.T) {
	// Arrange
	monitor := newMonitor(t, nil)
	defer monitor.Dispose()

	// Act & Assert
	assert.Equal(t, 0.0, monitor.UsagePercentage(utils.Ptr(int64(500)), utils.Ptr(int64(0))))
	assert.Equal(t, 100.0, monitor.UsagePercentage(utils.Ptr(int64(1000)), utils.Ptr(int64(1000))))
	assert.Equal(t, 100.0, monitor.UsagePercentage(utils.Ptr(int64(2000)), utils.Ptr(int64(1000))))
	assert.Equal(t, 33.33, monitor.UsagePercentage(utils.Ptr(int64(1)), utils.Ptr(int64(3))))

	// Nil arguments default to the current state, which is absent
	assert.Equal(t, 0.0, monitor.UsagePercentage(nil, nil))
}

func TestQuotaMonitor_ThresholdStatusFor(t *testing.T) {
	// Arrange
	monitor := newMonitor(t, nil)
	defer monitor.Dispose()

	// Act & Assert
	assert.Equal(t, enum.ThresholdNormal, monitor.ThresholdStatusFor(utils.Ptr(79.99)))
	assert.Equal(t, enum.ThresholdWarning, monitor.ThresholdStatusFor(utils.Ptr(80.0)))
	assert.Equal(t, enum.ThresholdWarning, monitor.ThresholdStatusFor(utils.Ptr(89.99)))
	assert.Equal(t, enum.ThresholdCritical, monitor.ThresholdStatusFor(utils.Ptr(90.0)))
	assert.Equal(t, enum.ThresholdCritical, monitor.ThresholdStatusFor(utils.Ptr(100.0)))

	// Nil defaults to the current percentage (zero while unchecked)
	assert.Equal(t, enum.ThresholdNormal, monitor.ThresholdStatusFor(nil))
}

func TestQuotaMonitor_Subscribe_ReplaysCurrentState(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	_, err := monitor.CheckStorageQuota(context.Background())
	require.NoError(t, err)

	// Act
	var mu sync.Mutex
	var received []models.QuotaState
	unsubscribe := monitor.Subscribe(func(state models.QuotaState) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, state)
	})

	// Assert - late subscriber got the last known state immediately
	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, 10.0, received[0].Percentage)
	mu.Unlock()

	// Act - a fresh check reaches the subscriber too
	_, err = monitor.CheckStorageQuota(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, received, 2)
	mu.Unlock()

	// Act - after unsubscribe nothing more arrives
	unsubscribe()
	_, err = monitor.CheckStorageQuota(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, received, 2)
	mu.Unlock()
}

func TestQuotaMonitor_Subscribe_PanicIsolation(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	var order []string
	monitor.Subscribe(func(state models.QuotaState) {
		order = append(order, "first")
		panic("listener gone wrong")
	})
	monitor.Subscribe(func(state models.QuotaState) {
		order = append(order, "second")
	})

	// Act
	_, err := monitor.CheckStorageQuota(context.Background())

	// Assert - the panicking listener did not starve the next one
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestQuotaMonitor_UpdateConfig_ReclassifiesWithoutPolling(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 850, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	_, err := monitor.CheckStorageQuota(context.Background())
	require.NoError(t, err)
	require.Equal(t, enum.ThresholdWarning, monitor.CurrentState().Status)
	callsBefore := provider.calls.Load()

	var broadcasts []models.QuotaState
	monitor.Subscribe(func(state models.QuotaState) {
		broadcasts = append(broadcasts, state)
	})
	broadcasts = nil // drop the subscription replay

	// Act - tighten thresholds so 85% becomes critical
	err = monitor.UpdateConfig(interfaces.QuotaConfigUpdate{
		WarningThreshold:  utils.Ptr(70.0),
		CriticalThreshold: utils.Ptr(80.0),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.ThresholdCritical, monitor.CurrentState().Status)
	assert.Equal(t, callsBefore, provider.calls.Load())
	require.Len(t, broadcasts, 1)
	assert.Equal(t, enum.ThresholdCritical, broadcasts[0].Status)

	// Act - a no-op reclassification stays silent
	err = monitor.UpdateConfig(interfaces.QuotaConfigUpdate{
		WarningThreshold: utils.Ptr(60.0),
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, broadcasts, 1)
}

func TestQuotaMonitor_UpdateConfig_RejectsInvalidMerge(t *testing.T) {
	// Arrange
	monitor := newMonitor(t, nil)
	defer monitor.Dispose()

	// Act - warning above the kept critical threshold of 90
	err := monitor.UpdateConfig(interfaces.QuotaConfigUpdate{
		WarningThreshold: utils.Ptr(95.0),
	})

	// Assert - rejected, previous thresholds still in force
	assert.Error(t, err)
	assert.Equal(t, enum.ThresholdWarning, monitor.ThresholdStatusFor(utils.Ptr(85.0)))
}

func TestQuotaMonitor_StartMonitoring(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act
	monitor.StartMonitoring(utils.Ptr(10 * time.Millisecond))
	time.Sleep(60 * time.Millisecond)
	monitor.StopMonitoring()

	// Assert - immediate check plus at least one scheduled tick
	assert.GreaterOrEqual(t, provider.calls.Load(), int64(2))

	// Act - no further checks after stop
	callsAfterStop := provider.calls.Load()
	time.Sleep(40 * time.Millisecond)

	// Assert
	assert.Equal(t, callsAfterStop, provider.calls.Load())

	// Stop is idempotent
	monitor.StopMonitoring()
}

func TestQuotaMonitor_StartMonitoring_SurvivesPollErrors(t *testing.T) {
	// Arrange - the provider fails its first three polls, then recovers
	provider := &fakeEstimateProvider{
		estimate:  &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
		err:       errors.New("statfs failed"),
		failFirst: 3,
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act
	monitor.StartMonitoring(utils.Ptr(10 * time.Millisecond))
	time.Sleep(100 * time.Millisecond)
	monitor.StopMonitoring()

	// Assert - failed polls were logged and skipped, not fatal: polling
	// went on well past the failures and a later state was stored
	assert.GreaterOrEqual(t, provider.calls.Load(), int64(5))
	current := monitor.CurrentState()
	require.NotNil(t, current)
	assert.Equal(t, 10.0, current.Percentage)
	assert.Equal(t, enum.ThresholdNormal, current.Status)
}

func TestQuotaMonitor_StartMonitoring_ReplacesSchedule(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)
	defer monitor.Dispose()

	// Act - second start replaces the first schedule
	monitor.StartMonitoring(utils.Ptr(time.Hour))
	monitor.StartMonitoring(utils.Ptr(10 * time.Millisecond))
	time.Sleep(60 * time.Millisecond)
	monitor.StopMonitoring()

	// Assert - two immediate checks plus ticks from the second schedule only
	assert.GreaterOrEqual(t, provider.calls.Load(), int64(3))
}

func TestQuotaMonitor_Dispose(t *testing.T) {
	// Arrange
	provider := &fakeEstimateProvider{
		estimate: &models.StorageEstimate{UsageBytes: 100, QuotaBytes: 1000},
	}
	monitor := newMonitor(t, provider)

	received := 0
	monitor.Subscribe(func(state models.QuotaState) {
		received++
	})

	_, err := monitor.CheckStorageQuota(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, received)

	// Act
	monitor.Dispose()
	_, err = monitor.CheckStorageQuota(context.Background())

	// Assert - state and subscribers were dropped
	require.NoError(t, err)
	assert.Equal(t, 1, received)
}
