package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTracker_FirstObservationNeverChanges(t *testing.T) {
	tracker := NewStateTracker(false)

	for _, status := range []string{"running", "error", "", "done"} {
		id := "first-" + status
		events := tracker.Diff([]Workload{{ID: id, Status: status}})

		require.Len(t, events, 1)
		assert.False(t, events[0].Changed, "status %q", status)
		assert.Nil(t, events[0].PreviousStatus)
	}
}

func TestStateTracker_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		first    string
		second   string
		changed  bool
		previous string
	}{
		{name: "status changed", first: "running", second: "error", changed: true, previous: "running"},
		{name: "status unchanged", first: "done", second: "done", changed: false, previous: "done"},
		{name: "empty to value", first: "", second: "idle", changed: true, previous: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewStateTracker(false)
			tracker.Diff([]Workload{{ID: "c1", Status: tt.first}})

			events := tracker.Diff([]Workload{{ID: "c1", Status: tt.second}})

			require.Len(t, events, 1)
			assert.Equal(t, tt.changed, events[0].Changed)
			require.NotNil(t, events[0].PreviousStatus)
			assert.Equal(t, tt.previous, *events[0].PreviousStatus)
			assert.Equal(t, tt.second, events[0].Status)

			status, ok := tracker.Status("c1")
			assert.True(t, ok)
			assert.Equal(t, tt.second, status)
		})
	}
}

func TestStateTracker_PreservesSnapshotOrder(t *testing.T) {
	tracker := NewStateTracker(false)
	snapshot := []Workload{
		{ID: "b", Name: "beta", ProjectName: "p1", Status: "idle"},
		{ID: "a", Name: "alpha", ProjectName: "p2", Status: "done"},
		{ID: "c", Name: "gamma", ProjectName: "p1", Status: "error"},
	}

	events := tracker.Diff(snapshot)

	require.Len(t, events, 3)
	for i, workload := range snapshot {
		assert.Equal(t, workload.ID, events[i].WorkloadID)
		assert.Equal(t, workload.Name, events[i].Name)
		assert.Equal(t, workload.ProjectName, events[i].ProjectName)
		assert.False(t, events[i].ObservedAt.IsZero())
	}
}

func TestStateTracker_AbsentWorkloadsRetained(t *testing.T) {
	tracker := NewStateTracker(false)
	tracker.Diff([]Workload{{ID: "c1", Status: "running"}, {ID: "c2", Status: "done"}})

	events := tracker.Diff([]Workload{{ID: "c1", Status: "running"}})

	assert.Len(t, events, 1)
	assert.Equal(t, 2, tracker.Len())
	status, ok := tracker.Status("c2")
	assert.True(t, ok)
	assert.Equal(t, "done", status)
}

func TestStateTracker_EvictAbsent(t *testing.T) {
	tracker := NewStateTracker(true)
	tracker.Diff([]Workload{{ID: "c1", Status: "running"}, {ID: "c2", Status: "done"}})

	events := tracker.Diff([]Workload{{ID: "c1", Status: "running"}})

	require.Len(t, events, 1)
	assert.False(t, events[0].Changed)
	assert.Equal(t, 1, tracker.Len())
	_, ok := tracker.Status("c2")
	assert.False(t, ok)

	// a returning workload counts as a first observation again
	events = tracker.Diff([]Workload{{ID: "c2", Status: "error"}})
	require.Len(t, events, 1)
	assert.False(t, events[0].Changed)
	assert.Nil(t, events[0].PreviousStatus)
}
