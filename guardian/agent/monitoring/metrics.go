package monitoring

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

const (
	MetricsCycleCount          = "monitor.cycles"
	MetricsFailedCycleCount    = "monitor.cycles.failed"
	MetricsTransitionCount     = "monitor.transitions"
	MetricsHandlerFailureCount = "monitor.handler.failures"
	MetricsCycleTimer          = "monitor.cycle.time"
	MetricsLastCycleGauge      = "monitor.cycle.last"
)

type cycleMetrics struct {
	cycles          metrics.Counter
	failedCycles    metrics.Counter
	transitions     metrics.Counter
	handlerFailures metrics.Counter
	cycleTime       metrics.Timer
	lastCycle       metrics.Gauge
}

func newCycleMetrics(registry metrics.Registry) *cycleMetrics {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &cycleMetrics{
		cycles:          metrics.GetOrRegisterCounter(MetricsCycleCount, registry),
		failedCycles:    metrics.GetOrRegisterCounter(MetricsFailedCycleCount, registry),
		transitions:     metrics.GetOrRegisterCounter(MetricsTransitionCount, registry),
		handlerFailures: metrics.GetOrRegisterCounter(MetricsHandlerFailureCount, registry),
		cycleTime:       metrics.GetOrRegisterTimer(MetricsCycleTimer, registry),
		lastCycle:       metrics.GetOrRegisterGauge(MetricsLastCycleGauge, registry),
	}
}

func (m *cycleMetrics) observe(start time.Time, transitions, handlerFailures int, failed bool) {
	m.cycles.Inc(1)
	if failed {
		m.failedCycles.Inc(1)
	}
	m.transitions.Inc(int64(transitions))
	m.handlerFailures.Inc(int64(handlerFailures))
	m.cycleTime.UpdateSince(start)
	m.lastCycle.Update(time.Now().UnixNano())
}

func (m *cycleMetrics) counters() CycleCounters {
	counters := CycleCounters{
		Cycles:          m.cycles.Count(),
		FailedCycles:    m.failedCycles.Count(),
		Transitions:     m.transitions.Count(),
		HandlerFailures: m.handlerFailures.Count(),
		MeanCycleTime:   m.cycleTime.Mean(),
	}
	if last := m.lastCycle.Value(); last > 0 {
		counters.LastCycleAt = time.Unix(0, last)
	}
	return counters
}
