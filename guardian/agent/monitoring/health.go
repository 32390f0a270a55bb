package monitoring

import (
	"context"
	"errors"
	"time"
)

// HealthOf evaluates a single workload. Failures are reported inside the
// returned snapshot, never as an error.
func (m *Monitor) HealthOf(ctx context.Context, workloadID string) HealthSnapshot {
	snapshot := HealthSnapshot{
		WorkloadID:  workloadID,
		EvaluatedAt: time.Now(),
	}

	if workloadID == "" {
		snapshot.Error = "workload ID is required"
		return snapshot
	}

	detail, err := m.source.GetDetail(ctx, workloadID)
	if err != nil {
		err = asFetchError("detail", workloadID, err)
		m.log.Errorw("Failed to evaluate workload health", "workloadId", workloadID, "error", err)
		snapshot.Error = err.Error()
		return snapshot
	}

	snapshot.Name = detail.Name
	snapshot.Status = detail.Status
	snapshot.ServiceCount = detail.ServiceCount
	snapshot.Services = detail.Services
	snapshot.Healthy = detail.Status == m.completeStatus && detail.ServiceCount > 0

	return snapshot
}

// IsNominal reports whether status belongs to the nominal status set.
func (m *Monitor) IsNominal(status string) bool {
	_, ok := m.nominal[status]
	return ok
}

// Unhealthy runs one cycle (advancing the tracker and notifying changes) and
// returns the workloads whose status is outside the nominal set.
func (m *Monitor) Unhealthy(ctx context.Context) ([]TransitionEvent, error) {
	events, err := m.RunCycle(ctx)
	if err != nil {
		return nil, err
	}

	unhealthy := make([]TransitionEvent, 0)
	for _, event := range events {
		if !m.IsNominal(event.Status) {
			unhealthy = append(unhealthy, event)
		}
	}
	return unhealthy, nil
}

// Stats aggregates the current snapshot. It reads the source directly and
// leaves the tracked statuses untouched.
func (m *Monitor) Stats(ctx context.Context) (MonitoringStats, error) {
	snapshot, err := m.source.ListAll(ctx)
	if err != nil {
		return MonitoringStats{}, asFetchError("list", "", err)
	}

	distribution := make(map[string]int)
	for _, workload := range snapshot {
		status := workload.Status
		if status == "" {
			status = "unknown"
		}
		distribution[status]++
	}

	return MonitoringStats{
		TotalWorkloads:     len(snapshot),
		Active:             m.IsRunning(),
		CheckInterval:      m.checkInterval,
		StatusDistribution: distribution,
		TrackedWorkloads:   m.tracker.Len(),
		Counters:           m.metrics.counters(),
	}, nil
}

// IsFetchError reports whether err originates from the WorkloadSource.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}
