package monitoring

import (
	"sync"
	"time"

	"github.com/infraguardian/infraguardian/shared-lib/pointers"
)

// StateTracker holds the last observed status per workload ID and turns
// snapshots into transition events.
type StateTracker struct {
	mu          sync.Mutex
	statuses    map[string]string
	evictAbsent bool
	now         func() time.Time
}

// NewStateTracker creates an empty tracker. With evictAbsent set, workloads
// missing from a snapshot are forgotten; no transition is emitted for them.
func NewStateTracker(evictAbsent bool) *StateTracker {
	return &StateTracker{
		statuses:    make(map[string]string),
		evictAbsent: evictAbsent,
		now:         time.Now,
	}
}

// Diff compares the snapshot with the stored statuses and records the new
// ones. Events are returned in snapshot order, one per workload.
func (t *StateTracker) Diff(snapshot []Workload) []TransitionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	observedAt := t.now()
	events := make([]TransitionEvent, 0, len(snapshot))

	var seen map[string]struct{}
	if t.evictAbsent {
		seen = make(map[string]struct{}, len(snapshot))
	}

	for _, workload := range snapshot {
		event := TransitionEvent{
			WorkloadID:  workload.ID,
			Name:        workload.Name,
			ProjectName: workload.ProjectName,
			Status:      workload.Status,
			ObservedAt:  observedAt,
		}

		// compare against the value from before this update
		if previous, known := t.statuses[workload.ID]; known {
			event.PreviousStatus = pointers.Ptr(previous)
			event.Changed = previous != workload.Status
		}
		t.statuses[workload.ID] = workload.Status

		if seen != nil {
			seen[workload.ID] = struct{}{}
		}
		events = append(events, event)
	}

	if seen != nil {
		for id := range t.statuses {
			if _, ok := seen[id]; !ok {
				delete(t.statuses, id)
			}
		}
	}

	return events
}

// Revert restores the previous status of events whose transition was never
// delivered, so the next cycle reports them again. Entries changed since the
// event was produced are left alone.
func (t *StateTracker) Revert(events []TransitionEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, event := range events {
		if event.PreviousStatus == nil {
			continue
		}
		if current, ok := t.statuses[event.WorkloadID]; ok && current == event.Status {
			t.statuses[event.WorkloadID] = *event.PreviousStatus
		}
	}
}

// Status returns the last recorded status for a workload.
func (t *StateTracker) Status(workloadID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[workloadID]
	return status, ok
}

// Len returns the number of workload IDs currently tracked.
func (t *StateTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.statuses)
}
