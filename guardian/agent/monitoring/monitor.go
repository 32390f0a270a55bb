package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kr/pretty"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultCompleteStatus is the status a workload reports once its deployment finished.
	DefaultCompleteStatus = "done"
)

// DefaultNominalStatuses are the statuses considered expected at rest.
var DefaultNominalStatuses = []string{"done", "running", "idle"}

// Option configures a Monitor.
type Option func(*Monitor)

// WithChangeHandler registers the handler notified on status transitions.
func WithChangeHandler(handler ChangeHandler) Option {
	return func(m *Monitor) {
		m.handler = handler
	}
}

// WithNominalStatuses replaces the set of statuses considered nominal.
func WithNominalStatuses(statuses ...string) Option {
	return func(m *Monitor) {
		m.nominal = make(map[string]struct{}, len(statuses))
		for _, status := range statuses {
			m.nominal[status] = struct{}{}
		}
	}
}

// WithCompleteStatus sets the status required for a workload to be healthy.
func WithCompleteStatus(status string) Option {
	return func(m *Monitor) {
		m.completeStatus = status
	}
}

// WithEvictAbsent drops workloads missing from a snapshot from the tracker.
func WithEvictAbsent(evict bool) Option {
	return func(m *Monitor) {
		m.evictAbsent = evict
	}
}

// WithMetricsRegistry records cycle metrics into the given registry.
func WithMetricsRegistry(registry metrics.Registry) Option {
	return func(m *Monitor) {
		m.registry = registry
	}
}

// Monitor polls a WorkloadSource and notifies status transitions.
//
// Start and Stop are expected to be called by a single owner. RunCycle,
// Unhealthy, HealthOf and Stats may be called concurrently with the loop.
type Monitor struct {
	source         WorkloadSource
	checkInterval  time.Duration
	log            *zap.SugaredLogger
	handler        ChangeHandler
	nominal        map[string]struct{}
	completeStatus string
	evictAbsent    bool
	registry       metrics.Registry

	tracker  *StateTracker
	notifier *ChangeNotifier
	metrics  *cycleMetrics

	// serialises cycles between the loop and inline queries
	cycleMu sync.Mutex

	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewMonitor validates its collaborators and returns a stopped Monitor.
func NewMonitor(source WorkloadSource, checkInterval time.Duration, log *zap.SugaredLogger, opts ...Option) (*Monitor, error) {
	if source == nil {
		return nil, &ConfigurationError{Field: "source", Message: "is required"}
	}
	if checkInterval <= 0 {
		return nil, &ConfigurationError{Field: "checkInterval", Message: fmt.Sprintf("must be positive, got %s", checkInterval)}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m := &Monitor{
		source:         source,
		checkInterval:  checkInterval,
		log:            log,
		completeStatus: DefaultCompleteStatus,
	}
	WithNominalStatuses(DefaultNominalStatuses...)(m)

	for _, opt := range opts {
		opt(m)
	}

	if len(m.nominal) == 0 {
		return nil, &ConfigurationError{Field: "nominalStatuses", Message: "must not be empty"}
	}
	if m.completeStatus == "" {
		return nil, &ConfigurationError{Field: "completeStatus", Message: "is required"}
	}

	m.tracker = NewStateTracker(m.evictAbsent)
	m.notifier = NewChangeNotifier(m.handler, log)
	m.metrics = newCycleMetrics(m.registry)

	return m, nil
}

// Start launches the background loop. Calling Start on a running monitor
// only logs a warning.
func (m *Monitor) Start() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.running.Load() {
		m.log.Warn("Workload monitor already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)

	go m.monitorLoop(ctx, m.done)

	m.log.Infow("Workload monitor started", "checkInterval", m.checkInterval)
}

// Stop cancels the loop and blocks until it has exited. No cycle started by
// the loop runs after Stop returns.
func (m *Monitor) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.running.Load() {
		return
	}

	m.running.Store(false)
	m.cancel()
	<-m.done

	m.cancel = nil
	m.done = nil
	m.log.Info("Workload monitor stopped")
}

// IsRunning reports whether the background loop is active.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// CheckInterval returns the configured wait between cycles.
func (m *Monitor) CheckInterval() time.Duration {
	return m.checkInterval
}

func (m *Monitor) monitorLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	m.log.Debugw("Workload monitor loop running", "checkInterval", m.checkInterval)

	for {
		if ctx.Err() != nil {
			return
		}

		events, err := m.RunCycle(ctx)
		if ctx.Err() != nil {
			m.log.Debug("Workload monitor loop cancelled")
			return
		}

		if err != nil {
			// keep polling: a failed fetch only ends this cycle
			m.log.Errorw("Workload monitor cycle failed", "error", err)
		} else {
			m.logSummary(events)
		}

		if !sleepContext(ctx, m.checkInterval) {
			m.log.Debug("Workload monitor loop cancelled")
			return
		}
	}
}

func (m *Monitor) logSummary(events []TransitionEvent) {
	changed := countChanged(events)
	if changed > 0 {
		m.log.Infow("Workload check completed", "workloads", len(events), "changes", changed)
		return
	}
	m.log.Debugw("Workload check completed", "workloads", len(events), "changes", 0)
}

// RunCycle fetches one snapshot, diffs it against the tracked statuses and
// notifies the changed workloads. On a fetch failure the tracker is left
// untouched and a *FetchError is returned with no events. When ctx is
// cancelled during notification the undelivered transitions are reverted and
// ctx.Err() is returned.
func (m *Monitor) RunCycle(ctx context.Context) (events []TransitionEvent, err error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := time.Now()
	var handlerFailures []error
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = &FetchError{Operation: "cycle", Err: fmt.Errorf("panic: %v", r)}
		}
		m.metrics.observe(start, countChanged(events), len(handlerFailures), err != nil)
	}()

	snapshot, err := m.source.ListAll(ctx)
	if err != nil {
		return nil, asFetchError("list", "", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// the snapshot arrived after cancellation, drop it
		return nil, ctxErr
	}

	if m.log.Desugar().Core().Enabled(zapcore.DebugLevel) {
		m.log.Debugw("Fetched workload snapshot", "count", len(snapshot), "snapshot", pretty.Sprint(snapshot))
	}

	events = m.tracker.Diff(snapshot)

	var undelivered []TransitionEvent
	handlerFailures, undelivered = m.notifier.Dispatch(ctx, events)
	if len(undelivered) > 0 {
		// re-detected by the next cycle
		m.tracker.Revert(undelivered)
		m.log.Debugw("Cycle cancelled during notification", "undelivered", len(undelivered))
		return nil, ctx.Err()
	}

	return events, nil
}

// TrackedWorkloads returns the number of workload IDs ever tracked (or still
// tracked when eviction is enabled).
func (m *Monitor) TrackedWorkloads() int {
	return m.tracker.Len()
}

func asFetchError(operation, workloadID string, err error) error {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	return &FetchError{Operation: operation, WorkloadID: workloadID, Err: err}
}

func countChanged(events []TransitionEvent) int {
	changed := 0
	for _, event := range events {
		if event.Changed {
			changed++
		}
	}
	return changed
}

// sleepContext waits for d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
