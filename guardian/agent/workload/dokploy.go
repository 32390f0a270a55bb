package workload

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/shared-lib/dokploy"
	httplib "github.com/infraguardian/infraguardian/shared-lib/http"
)

// DokploySource reports Dokploy compose deployments as workloads.
type DokploySource struct {
	client *dokploy.Client
	log    *zap.SugaredLogger
}

func NewDokploySource(client *dokploy.Client, log *zap.SugaredLogger) *DokploySource {
	return &DokploySource{
		client: client,
		log:    log,
	}
}

func (d *DokploySource) ListAll(ctx context.Context) ([]monitoring.Workload, error) {
	entries, err := d.client.GetAllComposes(ctx)
	if err != nil {
		return nil, types.NewSourceError(types.AgentOperationListingWorkloads, err, retryable(err))
	}

	workloads := make([]monitoring.Workload, 0, len(entries))
	for _, entry := range entries {
		workloads = append(workloads, monitoring.Workload{
			ID:              entry.ComposeID,
			Name:            entry.Name,
			Status:          entry.ComposeStatus,
			ProjectName:     entry.ProjectName,
			ProjectID:       entry.ProjectID,
			EnvironmentName: entry.EnvironmentName,
		})
	}

	d.log.Debugw("Listed Dokploy composes", "count", len(workloads))
	return workloads, nil
}

func (d *DokploySource) GetDetail(ctx context.Context, workloadID string) (monitoring.WorkloadDetail, error) {
	health, err := d.client.GetComposeHealth(ctx, workloadID)
	if err != nil {
		return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail, err, retryable(err)).
			WithContext("composeId", workloadID)
	}

	return monitoring.WorkloadDetail{
		ID:           health.ComposeID,
		Name:         health.Name,
		Status:       health.Status,
		ServiceCount: health.ServicesCount,
		Services:     health.Services,
	}, nil
}

// Client exposes the underlying API client for control operations.
func (d *DokploySource) Client() *dokploy.Client {
	return d.client
}

func retryable(err error) bool {
	var statusErr *httplib.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
