package workloads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/compose/v2/pkg/api"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	summaries []container.Summary
	err       error
	options   container.ListOptions
}

func (f *fakeLister) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.options = options
	return f.summaries, f.err
}

func TestDeriveComposeStatus(t *testing.T) {
	tests := []struct {
		name       string
		containers []ContainerState
		want       string
	}{
		{name: "no containers", containers: nil, want: ComposeStatusIdle},
		{name: "all running", containers: []ContainerState{{State: "running"}, {State: "running"}}, want: ComposeStatusDone},
		{name: "running with finished init", containers: []ContainerState{{State: "running"}, {State: "exited"}}, want: ComposeStatusDone},
		{name: "all stopped cleanly", containers: []ContainerState{{State: "exited"}, {State: "paused"}}, want: ComposeStatusIdle},
		{name: "created", containers: []ContainerState{{State: "running"}, {State: "created"}}, want: ComposeStatusRunning},
		{name: "health starting", containers: []ContainerState{{State: "running", Health: "starting"}}, want: ComposeStatusRunning},
		{name: "restarting", containers: []ContainerState{{State: "Restarting"}}, want: ComposeStatusRunning},
		{name: "crashed", containers: []ContainerState{{State: "running"}, {State: "exited", ExitCode: 137}}, want: ComposeStatusError},
		{name: "unhealthy", containers: []ContainerState{{State: "running", Health: "unhealthy"}, {State: "created"}}, want: ComposeStatusError},
		{name: "dead", containers: []ContainerState{{State: "dead"}}, want: ComposeStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveComposeStatus(tt.containers))
		})
	}
}

func TestStatusParsing(t *testing.T) {
	assert.Equal(t, 137, exitCodeFromStatus("Exited (137) 2 hours ago"))
	assert.Equal(t, 0, exitCodeFromStatus("Exited (0) 5 seconds ago"))
	assert.Equal(t, 0, exitCodeFromStatus("Up 3 minutes"))

	assert.Equal(t, "unhealthy", healthFromStatus("Up 3 minutes (unhealthy)"))
	assert.Equal(t, "starting", healthFromStatus("Up 2 seconds (health: starting)"))
	assert.Equal(t, "", healthFromStatus("Up 3 minutes"))
}

func TestListComposeStatuses_GroupsByProject(t *testing.T) {
	lister := &fakeLister{summaries: []container.Summary{
		{
			ID:     "0123456789abcdef",
			Image:  "nginx:1.27",
			State:  "running",
			Status: "Up 1 hour (healthy)",
			Labels: map[string]string{
				api.ProjectLabel:     "shop",
				api.ServiceLabel:     "web",
				api.ConfigFilesLabel: "/srv/shop/compose.yaml,/srv/shop/compose.prod.yaml",
				api.WorkingDirLabel:  "/srv/shop",
			},
			Ports: []container.Port{{PrivatePort: 80, PublicPort: 8080, Type: "tcp"}},
		},
		{
			ID:     "fedcba9876543210",
			Image:  "postgres:16",
			State:  "exited",
			Status: "Exited (1) 3 minutes ago",
			Labels: map[string]string{api.ProjectLabel: "shop", api.ServiceLabel: "db"},
		},
		{
			ID:     "aaaaaaaaaaaaaaaa",
			Image:  "busybox",
			State:  "running",
			Status: "Up 10 seconds",
			Labels: map[string]string{api.ProjectLabel: "blog", api.ServiceLabel: "app"},
		},
	}}
	client := &DockerComposeClient{containers: lister}

	statuses, err := client.ListComposeStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.True(t, lister.options.All)
	assert.Equal(t, []string{api.ProjectLabel}, lister.options.Filters.Get("label"))

	assert.Equal(t, "blog", statuses[0].Name)
	assert.Equal(t, ComposeStatusDone, statuses[0].Status)

	shop := statuses[1]
	assert.Equal(t, "shop", shop.Name)
	assert.Equal(t, ComposeStatusError, shop.Status)
	assert.Equal(t, []string{"/srv/shop/compose.yaml", "/srv/shop/compose.prod.yaml"}, shop.ConfigFiles)
	assert.Equal(t, "/srv/shop", shop.WorkingDir)
	assert.Equal(t, []string{"db", "web"}, shop.ServiceNames())
	assert.Equal(t, "0123456789ab", shop.Services[0].ContainerID)
	assert.Equal(t, []string{"8080:80"}, shop.Services[0].Ports)
	assert.Equal(t, "healthy", shop.Services[0].Health)
	assert.Equal(t, 1, shop.Services[1].ExitCode)
}

func TestListComposeStatuses_DaemonError(t *testing.T) {
	client := &DockerComposeClient{containers: &fakeLister{err: errors.New("daemon unreachable")}}

	_, err := client.ListComposeStatuses(context.Background())

	assert.ErrorContains(t, err, "daemon unreachable")
}

func TestDeclaredServices_RequiresConfigFiles(t *testing.T) {
	client := &DockerComposeClient{}

	_, err := client.DeclaredServices(context.Background(), ComposeStatus{Name: "shop"})

	assert.Error(t, err)
}

func TestDeclaredServices_LoadsComposeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  web:
    image: nginx:1.27
  worker:
    image: busybox
    command: ["sleep", "infinity"]
`), 0o600))

	client := &DockerComposeClient{}
	services, err := client.DeclaredServices(context.Background(), ComposeStatus{
		Name:        "shop",
		ConfigFiles: []string{path},
		WorkingDir:  dir,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"web", "worker"}, services)
}
