package workload

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
)

type staticInventory struct {
	Workloads []staticWorkload `yaml:"workloads"`
}

type staticWorkload struct {
	monitoring.Workload `yaml:",inline"`
	Services            []string `yaml:"services"`
}

// StaticSource serves workloads from a YAML inventory file. The file is read
// on every call so edits show up in the next cycle.
type StaticSource struct {
	path string
	log  *zap.SugaredLogger
}

func NewStaticSource(path string, log *zap.SugaredLogger) *StaticSource {
	return &StaticSource{
		path: path,
		log:  log,
	}
}

func (s *StaticSource) ListAll(ctx context.Context) ([]monitoring.Workload, error) {
	inventory, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]monitoring.Workload, 0, len(inventory.Workloads))
	for i, entry := range inventory.Workloads {
		if entry.ID == "" {
			s.log.Warnw("Skipping inventory entry without id", "path", s.path, "index", i)
			continue
		}
		result = append(result, entry.Workload)
	}
	return result, nil
}

func (s *StaticSource) GetDetail(ctx context.Context, workloadID string) (monitoring.WorkloadDetail, error) {
	inventory, err := s.load()
	if err != nil {
		return monitoring.WorkloadDetail{}, err
	}

	for _, entry := range inventory.Workloads {
		if entry.ID == workloadID {
			return monitoring.WorkloadDetail{
				ID:           entry.ID,
				Name:         entry.Name,
				Status:       entry.Status,
				ServiceCount: len(entry.Services),
				Services:     entry.Services,
			}, nil
		}
	}

	return monitoring.WorkloadDetail{}, types.NewSourceError(types.AgentOperationReadingWorkloadDetail,
		fmt.Errorf("workload %s not found in %s", workloadID, s.path), false)
}

func (s *StaticSource) load() (*staticInventory, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, types.NewSourceError(types.AgentOperationListingWorkloads, fmt.Errorf("failed to read inventory: %w", err), true)
	}

	var inventory staticInventory
	if err := yaml.Unmarshal(data, &inventory); err != nil {
		return nil, types.NewSourceError(types.AgentOperationListingWorkloads, fmt.Errorf("failed to parse inventory: %w", err), false).
			WithContext("path", s.path)
	}
	return &inventory, nil
}
