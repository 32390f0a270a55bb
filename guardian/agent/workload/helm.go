package workload

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"helm.sh/helm/v3/pkg/release"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/shared-lib/workloads"
)

type helmClient interface {
	ListReleases(ctx context.Context) ([]workloads.ReleaseStatus, error)
	GetReleaseStatus(ctx context.Context, releaseName, namespace string) (*workloads.ReleaseStatus, error)
	ReleasePods(ctx context.Context, releaseName, namespace string) ([]workloads.PodStatus, error)
}

// HelmSource reports Helm releases as workloads identified by
// "namespace/name".
type HelmSource struct {
	client helmClient
	log    *zap.SugaredLogger
}

func NewHelmSource(client helmClient, log *zap.SugaredLogger) *HelmSource {
	return &HelmSource{
		client: client,
		log:    log,
	}
}

func (h *HelmSource) ListAll(ctx context.Context) ([]monitoring.Workload, error) {
	releases, err := h.client.ListReleases(ctx)
	if err != nil {
		return nil, types.NewSourceError(types.AgentOperationListingWorkloads, err, true)
	}

	result := make([]monitoring.Workload, 0, len(releases))
	for _, rel := range releases {
		result = append(result, monitoring.Workload{
			ID:          releaseID(rel.Namespace, rel.Name),
			Name:        rel.Name,
			Status:      ReleaseWorkloadStatus(rel.Status),
			ProjectName: rel.Namespace,
		})
	}
	return result, nil
}

// GetDetail counts the ready pods of the release as its services.
func (h *HelmSource) GetDetail(ctx context.Context, workloadID string) (monitoring.WorkloadDetail, error) {
	namespace, name, err := splitReleaseID(workloadID)
	if err != nil {
		return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail, err, false)
	}

	rel, err := h.client.GetReleaseStatus(ctx, name, namespace)
	if err != nil {
		return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail, err, false).
			WithContext("release", workloadID)
	}

	pods, err := h.client.ReleasePods(ctx, name, namespace)
	if err != nil {
		return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail, err, true).
			WithContext("release", workloadID)
	}

	ready := make([]string, 0, len(pods))
	for _, pod := range pods {
		if pod.Ready {
			ready = append(ready, pod.Name)
		}
	}
	if len(ready) < len(pods) {
		h.log.Debugw("Release has pods that are not ready", "release", workloadID, "ready", len(ready), "total", len(pods))
	}

	return monitoring.WorkloadDetail{
		ID:           workloadID,
		Name:         rel.Name,
		Status:       ReleaseWorkloadStatus(rel.Status),
		ServiceCount: len(ready),
		Services:     ready,
	}, nil
}

// ReleaseWorkloadStatus maps a Helm release status onto the shared workload
// status vocabulary.
func ReleaseWorkloadStatus(status release.Status) string {
	switch status {
	case release.StatusDeployed:
		return workloads.ComposeStatusDone
	case release.StatusPendingInstall, release.StatusPendingUpgrade, release.StatusPendingRollback, release.StatusUninstalling:
		return workloads.ComposeStatusRunning
	case release.StatusFailed:
		return workloads.ComposeStatusError
	case release.StatusUnknown, "":
		return "unknown"
	default:
		return workloads.ComposeStatusIdle
	}
}

func releaseID(namespace, name string) string {
	return namespace + "/" + name
}

func splitReleaseID(id string) (string, string, error) {
	namespace, name, ok := strings.Cut(id, "/")
	if !ok || namespace == "" || name == "" {
		return "", "", fmt.Errorf("invalid release id %q, expected namespace/name", id)
	}
	return namespace, name, nil
}
