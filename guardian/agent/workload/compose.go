package workload

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/shared-lib/workloads"
)

type composeClient interface {
	ListComposeStatuses(ctx context.Context) ([]workloads.ComposeStatus, error)
	GetComposeStatus(ctx context.Context, projectName string) (*workloads.ComposeStatus, error)
	DeclaredServices(ctx context.Context, status workloads.ComposeStatus) ([]string, error)
}

// ComposeSource reports local Docker Compose projects as workloads. The
// project name is the workload ID.
type ComposeSource struct {
	client   composeClient
	projects map[string]struct{}
	log      *zap.SugaredLogger
}

// NewComposeSource creates a source over every compose project, or only the
// named projects when any are given.
func NewComposeSource(client composeClient, projects []string, log *zap.SugaredLogger) *ComposeSource {
	var filter map[string]struct{}
	if len(projects) > 0 {
		filter = make(map[string]struct{}, len(projects))
		for _, project := range projects {
			filter[project] = struct{}{}
		}
	}

	return &ComposeSource{
		client:   client,
		projects: filter,
		log:      log,
	}
}

func (c *ComposeSource) ListAll(ctx context.Context) ([]monitoring.Workload, error) {
	statuses, err := c.client.ListComposeStatuses(ctx)
	if err != nil {
		return nil, types.NewSourceError(types.AgentOperationListingWorkloads, err, true)
	}

	result := make([]monitoring.Workload, 0, len(statuses))
	for _, status := range statuses {
		if !c.selected(status.Name) {
			continue
		}
		result = append(result, monitoring.Workload{
			ID:          status.Name,
			Name:        status.Name,
			Status:      status.Status,
			ProjectName: status.Name,
		})
	}
	return result, nil
}

func (c *ComposeSource) GetDetail(ctx context.Context, workloadID string) (monitoring.WorkloadDetail, error) {
	status, err := c.client.GetComposeStatus(ctx, workloadID)
	if err != nil {
		return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail, err, false).
			WithContext("project", workloadID)
	}

	services := status.ServiceNames()
	declared, err := c.client.DeclaredServices(ctx, *status)
	if err != nil {
		c.log.Debugw("Compose files not readable, using running services only", "project", workloadID, "error", err)
	} else {
		services = mergeNames(services, declared)
	}

	return monitoring.WorkloadDetail{
		ID:           status.Name,
		Name:         status.Name,
		Status:       status.Status,
		ServiceCount: len(services),
		Services:     services,
	}, nil
}

func (c *ComposeSource) selected(project string) bool {
	if c.projects == nil {
		return true
	}
	_, ok := c.projects[project]
	return ok
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, names := range [][]string{a, b} {
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	sort.Strings(merged)
	return merged
}
