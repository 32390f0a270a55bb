package monitoring

import (
	"context"
	"time"

	"github.com/infraguardian/infraguardian/shared-lib/pointers"
)

// Workload is one deployable unit reported by a WorkloadSource.
type Workload struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Status          string `json:"status" yaml:"status"` // provider defined, e.g. idle, running, done, error
	ProjectName     string `json:"projectName" yaml:"project"`
	ProjectID       string `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	EnvironmentName string `json:"environmentName,omitempty" yaml:"environment,omitempty"`
}

// WorkloadDetail is the combined workload and service view used for health checks.
type WorkloadDetail struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	ServiceCount int      `json:"serviceCount"`
	Services     []string `json:"services,omitempty"`
}

// WorkloadSource supplies workload snapshots. Implementations must return
// fully populated entries or omit them.
type WorkloadSource interface {
	ListAll(ctx context.Context) ([]Workload, error)
	GetDetail(ctx context.Context, workloadID string) (WorkloadDetail, error)
}

// TransitionEvent is the per-cycle observation of one workload.
type TransitionEvent struct {
	WorkloadID     string    `json:"workloadId"`
	Name           string    `json:"name"`
	ProjectName    string    `json:"projectName"`
	PreviousStatus *string   `json:"previousStatus,omitempty"` // nil on first observation
	Status         string    `json:"status"`
	Changed        bool      `json:"changed"`
	ObservedAt     time.Time `json:"observedAt"`
}

// Previous returns the previous status or an empty string when the workload
// was observed for the first time.
func (e TransitionEvent) Previous() string {
	return pointers.Deref(e.PreviousStatus)
}

// HealthSnapshot is the result of a single workload health evaluation.
type HealthSnapshot struct {
	WorkloadID   string    `json:"workloadId"`
	Name         string    `json:"name,omitempty"`
	Status       string    `json:"status,omitempty"`
	ServiceCount int       `json:"serviceCount"`
	Services     []string  `json:"services,omitempty"`
	Healthy      bool      `json:"healthy"`
	EvaluatedAt  time.Time `json:"evaluatedAt"`
	Error        string    `json:"error,omitempty"`
}

// CycleCounters are the lifetime counters of a Monitor.
type CycleCounters struct {
	Cycles          int64     `json:"cycles"`
	FailedCycles    int64     `json:"failedCycles"`
	Transitions     int64     `json:"transitions"`
	HandlerFailures int64     `json:"handlerFailures"`
	MeanCycleTime   float64   `json:"meanCycleTimeNs"`
	LastCycleAt     time.Time `json:"lastCycleAt,omitempty"`
}

// MonitoringStats is computed on demand and never cached.
type MonitoringStats struct {
	TotalWorkloads     int            `json:"totalWorkloads"`
	Active             bool           `json:"active"`
	CheckInterval      time.Duration  `json:"checkInterval"`
	StatusDistribution map[string]int `json:"statusDistribution"`
	TrackedWorkloads   int            `json:"trackedWorkloads"`
	Counters           CycleCounters  `json:"counters"`
}
