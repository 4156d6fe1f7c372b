package quota

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/enum"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
	"github.com/mailvault/mailvault/internal/tracing"
	"github.com/mailvault/mailvault/internal/utils"
)

const DefaultCheckInterval = 5 * time.Minute

type quotaMonitor struct {
	log      logger.Logger
	provider interfaces.StorageEstimateProvider

	mu          sync.Mutex
	config      interfaces.QuotaConfig
	current     *models.QuotaState
	subscribers map[int]interfaces.QuotaListener
	subOrder    []int
	nextSubID   int

	running bool
	stopCh  chan struct{}
}

// NewQuotaMonitor builds a monitor over the given estimate provider.
// A nil provider is allowed; every check then degrades to the zero
// state.
func NewQuotaMonitor(provider interfaces.StorageEstimateProvider, cfg interfaces.QuotaConfig, log logger.Logger) (interfaces.QuotaMonitorService, error) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if err := validateThresholds(cfg.WarningThreshold, cfg.CriticalThreshold); err != nil {
		return nil, err
	}

	return &quotaMonitor{
		log:         log,
		provider:    provider,
		config:      cfg,
		subscribers: make(map[int]interfaces.QuotaListener),
	}, nil
}

func validateThresholds(warning, critical float64) error {
	if warning < 0 || warning > 100 || critical < 0 || critical > 100 {
		return errors.New("quota thresholds must be percentages in [0,100]")
	}
	if warning > critical {
		return errors.New("warning threshold must not exceed critical threshold")
	}
	return nil
}

func (m *quotaMonitor) CheckStorageQuota(ctx context.Context) (models.QuotaState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "quotaMonitor.CheckStorageQuota")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if m.provider == nil {
		// Capability absent: degrade, do not store or broadcast.
		span.SetTag("provider.absent", true)
		return models.QuotaState{
			Status:      enum.ThresholdNormal,
			LastChecked: utils.Now(),
		}, nil
	}

	estimate, err := m.provider.Estimate(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return models.QuotaState{}, errors.Wrap(err, "storage estimate failed")
	}
	if estimate == nil {
		span.SetTag("provider.absent", true)
		return models.QuotaState{
			Status:      enum.ThresholdNormal,
			LastChecked: utils.Now(),
		}, nil
	}

	m.mu.Lock()
	percentage := computePercentage(estimate.UsageBytes, estimate.QuotaBytes)
	state := models.QuotaState{
		UsageBytes:  estimate.UsageBytes,
		QuotaBytes:  estimate.QuotaBytes,
		Percentage:  percentage,
		Status:      classify(percentage, m.config),
		LastChecked: utils.Now(),
	}
	m.current = &state
	listeners := m.listenersLocked()
	m.mu.Unlock()

	span.SetTag("quota.percentage", state.Percentage)
	span.SetTag("quota.status", state.Status.String())

	m.broadcast(listeners, state)
	return state, nil
}

func (m *quotaMonitor) CurrentState() *models.QuotaState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	state := *m.current
	return &state
}

func (m *quotaMonitor) UsagePercentage(usageBytes, quotaBytes *int64) float64 {
	m.mu.Lock()
	var currentUsage, currentQuota int64
	if m.current != nil {
		currentUsage = m.current.UsageBytes
		currentQuota = m.current.QuotaBytes
	}
	m.mu.Unlock()

	usage := utils.GetOrDefault(usageBytes, currentUsage)
	quota := utils.GetOrDefault(quotaBytes, currentQuota)
	return computePercentage(usage, quota)
}

func (m *quotaMonitor) ThresholdStatusFor(percentage *float64) enum.ThresholdStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current float64
	if m.current != nil {
		current = m.current.Percentage
	}
	return classify(utils.GetOrDefault(percentage, current), m.config)
}

func (m *quotaMonitor) Subscribe(listener interfaces.QuotaListener) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = listener
	m.subOrder = append(m.subOrder, id)
	var replay *models.QuotaState
	if m.current != nil {
		state := *m.current
		replay = &state
	}
	m.mu.Unlock()

	// A late subscriber sees the last known state right away.
	if replay != nil {
		m.notify(listener, *replay)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
		for i, subID := range m.subOrder {
			if subID == id {
				m.subOrder = append(m.subOrder[:i], m.subOrder[i+1:]...)
				break
			}
		}
	}
}

func (m *quotaMonitor) StartMonitoring(interval *time.Duration) {
	m.mu.Lock()
	every := m.config.CheckInterval
	if interval != nil && *interval > 0 {
		every = *interval
	}
	// Restart replaces the schedule instead of stacking a second one.
	if m.running {
		close(m.stopCh)
	}
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	m.running = true
	m.mu.Unlock()

	if _, err := m.CheckStorageQuota(context.Background()); err != nil {
		m.log.Warnf("Initial quota check failed: %v", err)
	}

	go m.runSchedule(stopCh, every)
}

func (m *quotaMonitor) runSchedule(stopCh chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A failed poll must not kill the schedule.
			if _, err := m.CheckStorageQuota(context.Background()); err != nil {
				m.log.Warnf("Scheduled quota check failed: %v", err)
			}
		case <-stopCh:
			return
		}
	}
}

func (m *quotaMonitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.stopCh)
	m.stopCh = nil
	m.running = false
}

func (m *quotaMonitor) UpdateConfig(update interfaces.QuotaConfigUpdate) error {
	m.mu.Lock()
	warning := utils.GetOrDefault(update.WarningThreshold, m.config.WarningThreshold)
	critical := utils.GetOrDefault(update.CriticalThreshold, m.config.CriticalThreshold)
	if err := validateThresholds(warning, critical); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config.WarningThreshold = warning
	m.config.CriticalThreshold = critical
	if update.CheckInterval != nil && *update.CheckInterval > 0 {
		m.config.CheckInterval = *update.CheckInterval
	}

	var changed *models.QuotaState
	var listeners []interfaces.QuotaListener
	if m.current != nil {
		// Reclassify the existing state against the new thresholds
		// without re-polling.
		status := classify(m.current.Percentage, m.config)
		if status != m.current.Status {
			m.current.Status = status
			state := *m.current
			changed = &state
			listeners = m.listenersLocked()
		}
	}
	m.mu.Unlock()

	if changed != nil {
		m.broadcast(listeners, *changed)
	}
	return nil
}

func (m *quotaMonitor) Dispose() {
	m.StopMonitoring()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = make(map[int]interfaces.QuotaListener)
	m.subOrder = nil
	m.current = nil
}

// listenersLocked snapshots subscribers in subscription order; callers
// must hold m.mu.
func (m *quotaMonitor) listenersLocked() []interfaces.QuotaListener {
	listeners := make([]interfaces.QuotaListener, 0, len(m.subOrder))
	for _, id := range m.subOrder {
		if listener, ok := m.subscribers[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	return listeners
}

func (m *quotaMonitor) broadcast(listeners []interfaces.QuotaListener, state models.QuotaState) {
	for _, listener := range listeners {
		m.notify(listener, state)
	}
}

// notify isolates a panicking listener so the rest still get the
// state.
func (m *quotaMonitor) notify(listener interfaces.QuotaListener, state models.QuotaState) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("Quota listener panicked: %v", r)
		}
	}()
	listener(state)
}

func computePercentage(usageBytes, quotaBytes int64) float64 {
	if quotaBytes <= 0 {
		return 0
	}
	percentage := float64(usageBytes) / float64(quotaBytes) * 100
	if percentage > 100 {
		percentage = 100
	}
	return math.Round(percentage*100) / 100
}

func classify(percentage float64, cfg interfaces.QuotaConfig) enum.ThresholdStatus {
	switch {
	case percentage >= cfg.CriticalThreshold:
		return enum.ThresholdCritical
	case percentage >= cfg.WarningThreshold:
		return enum.ThresholdWarning
	default:
		return enum.ThresholdNormal
	}
}
