package workload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
)

const inventory = `
workloads:
  - id: c1
    name: api
    status: done
    project: shop
    services: [web, db]
  - name: no-id
    status: error
  - id: c2
    name: worker
    status: idle
    project: shop
`

func TestStaticSource_ReadsInventoryOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0o600))
	source := NewStaticSource(path, zaptest.NewLogger(t).Sugar())

	result, err := source.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []monitoring.Workload{
		{ID: "c1", Name: "api", Status: "done", ProjectName: "shop"},
		{ID: "c2", Name: "worker", Status: "idle", ProjectName: "shop"},
	}, result)

	require.NoError(t, os.WriteFile(path, []byte("workloads:\n  - id: c1\n    status: error\n"), 0o600))
	result, err = source.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "error", result[0].Status)
}

func TestStaticSource_GetDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0o600))
	source := NewStaticSource(path, zaptest.NewLogger(t).Sugar())

	detail, err := source.GetDetail(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, detail.ServiceCount)
	assert.Equal(t, []string{"web", "db"}, detail.Services)

	_, err = source.GetDetail(context.Background(), "c9")
	assert.ErrorContains(t, err, "not found")
}

func TestStaticSource_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewStaticSource(filepath.Join(dir, "absent.yaml"), zaptest.NewLogger(t).Sugar()).ListAll(context.Background())
	assert.ErrorContains(t, err, "failed to read inventory")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("workloads: {id: ["), 0o600))
	_, err = NewStaticSource(broken, zaptest.NewLogger(t).Sugar()).ListAll(context.Background())
	assert.ErrorContains(t, err, "failed to parse inventory")
}
