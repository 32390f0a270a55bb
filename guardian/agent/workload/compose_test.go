package workload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/shared-lib/workloads"
)

type fakeComposeClient struct {
	statuses    []workloads.ComposeStatus
	listErr     error
	declared    []string
	declaredErr error
}

func (f *fakeComposeClient) ListComposeStatuses(ctx context.Context) ([]workloads.ComposeStatus, error) {
	return f.statuses, f.listErr
}

func (f *fakeComposeClient) GetComposeStatus(ctx context.Context, projectName string) (*workloads.ComposeStatus, error) {
	for _, status := range f.statuses {
		if status.Name == projectName {
			return &status, nil
		}
	}
	return nil, workloads.ErrProjectNotFound
}

func (f *fakeComposeClient) DeclaredServices(ctx context.Context, status workloads.ComposeStatus) ([]string, error) {
	return f.declared, f.declaredErr
}

func TestComposeSource_ListAllFiltersProjects(t *testing.T) {
	client := &fakeComposeClient{statuses: []workloads.ComposeStatus{
		{Name: "blog", Status: workloads.ComposeStatusDone},
		{Name: "shop", Status: workloads.ComposeStatusError},
	}}

	all, err := NewComposeSource(client, nil, zaptest.NewLogger(t).Sugar()).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := NewComposeSource(client, []string{"shop"}, zaptest.NewLogger(t).Sugar()).ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []monitoring.Workload{{ID: "shop", Name: "shop", Status: "error", ProjectName: "shop"}}, filtered)
}

func TestComposeSource_ListAllError(t *testing.T) {
	client := &fakeComposeClient{listErr: errors.New("daemon down")}

	_, err := NewComposeSource(client, nil, zaptest.NewLogger(t).Sugar()).ListAll(context.Background())

	assert.ErrorContains(t, err, "daemon down")
}

func TestComposeSource_GetDetailMergesDeclaredServices(t *testing.T) {
	client := &fakeComposeClient{
		statuses: []workloads.ComposeStatus{{
			Name:     "shop",
			Status:   workloads.ComposeStatusDone,
			Services: []workloads.ServiceStatus{{Name: "web", State: "running"}, {Name: "web", State: "running"}},
		}},
		declared: []string{"web", "migrations"},
	}
	source := NewComposeSource(client, nil, zaptest.NewLogger(t).Sugar())

	detail, err := source.GetDetail(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations", "web"}, detail.Services)
	assert.Equal(t, 2, detail.ServiceCount)

	client.declaredErr = errors.New("compose file moved")
	detail, err = source.GetDetail(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, detail.Services)

	_, err = source.GetDetail(context.Background(), "absent")
	assert.ErrorIs(t, err, workloads.ErrProjectNotFound)
}
