package workloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/docker/cli/cli/command"
	"github.com/docker/cli/cli/flags"
	"github.com/docker/compose/v2/pkg/api"
	"github.com/docker/compose/v2/pkg/compose"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Statuses reported for compose projects. They follow the Dokploy vocabulary
// so the same nominal set applies to every source.
const (
	ComposeStatusIdle    = "idle"
	ComposeStatusRunning = "running"
	ComposeStatusDone    = "done"
	ComposeStatusError   = "error"
)

// ErrProjectNotFound is returned when no container belongs to a project.
var ErrProjectNotFound = errors.New("compose project not found")

type DockerConnectionViaHttp struct {
	Protocol   string
	Host       string
	Port       uint16
	CaCertPath string
	CertPath   string
	KeyPath    string
}

type DockerConnectionViaSocket struct {
	SocketPath string
}

// DockerConnectivityParams selects how to reach the daemon. When both are nil
// the DOCKER_HOST environment is used.
type DockerConnectivityParams struct {
	ViaHttp   *DockerConnectionViaHttp
	ViaSocket *DockerConnectionViaSocket
}

// ContainerState is the part of a container that decides a project status.
type ContainerState struct {
	State    string
	Health   string
	ExitCode int
}

// ComposeStatus represents the status of a Docker Compose project
type ComposeStatus struct {
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	ConfigFiles []string        `json:"configFiles,omitempty"`
	WorkingDir  string          `json:"workingDir,omitempty"`
	Services    []ServiceStatus `json:"services"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type ServiceStatus struct {
	Name        string   `json:"name"`
	State       string   `json:"state"`
	Health      string   `json:"health,omitempty"`
	ExitCode    int      `json:"exitCode"`
	Image       string   `json:"image"`
	Ports       []string `json:"ports,omitempty"`
	ContainerID string   `json:"containerId"`
}

// ServiceNames returns the distinct service names, sorted.
func (s ComposeStatus) ServiceNames() []string {
	seen := make(map[string]struct{}, len(s.Services))
	names := make([]string, 0, len(s.Services))
	for _, service := range s.Services {
		if _, ok := seen[service.Name]; ok || service.Name == "" {
			continue
		}
		seen[service.Name] = struct{}{}
		names = append(names, service.Name)
	}
	sort.Strings(names)
	return names
}

type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

type DockerComposeClient struct {
	containers containerLister
	composeAPI api.Service
}

func NewDockerComposeClient(params DockerConnectivityParams) (*DockerComposeClient, error) {
	var dockerClient *client.Client
	var err error
	var host string

	if params.ViaSocket != nil {
		host = params.ViaSocket.SocketPath
		dockerClient, err = client.NewClientWithOpts(
			client.WithHost(host),
			client.WithAPIVersionNegotiation(),
		)
	} else if params.ViaHttp != nil {
		host = fmt.Sprintf("%s://%s:%d", params.ViaHttp.Protocol, params.ViaHttp.Host, params.ViaHttp.Port)
		dockerClient, err = client.NewClientWithOpts(
			client.WithHost(host),
			client.WithTLSClientConfig(params.ViaHttp.CaCertPath, params.ViaHttp.CertPath, params.ViaHttp.KeyPath),
			client.WithAPIVersionNegotiation(),
		)
	} else {
		dockerClient, err = client.NewClientWithOpts(
			client.FromEnv,
			client.WithAPIVersionNegotiation(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err = dockerClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to docker daemon: %w", err)
	}

	dockerCli, err := command.NewDockerCli(
		command.WithInputStream(os.Stdin),
		command.WithOutputStream(os.Stdout),
		command.WithErrorStream(os.Stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker CLI: %w", err)
	}

	opts := &flags.ClientOptions{}
	if host != "" {
		opts.Hosts = []string{host}
	}
	if err := dockerCli.Initialize(opts); err != nil {
		return nil, fmt.Errorf("failed to initialize docker CLI: %w", err)
	}

	return &DockerComposeClient{
		containers: dockerClient,
		composeAPI: compose.NewComposeService(dockerCli),
	}, nil
}

// ListComposeStatuses returns one status per compose project that owns at
// least one container, ordered by project name.
func (c *DockerComposeClient) ListComposeStatuses(ctx context.Context) ([]ComposeStatus, error) {
	summaries, err := c.containers.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", api.ProjectLabel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	projects := make(map[string]*ComposeStatus)
	for _, summary := range summaries {
		name := summary.Labels[api.ProjectLabel]
		if name == "" {
			continue
		}

		project, ok := projects[name]
		if !ok {
			project = &ComposeStatus{
				Name:        name,
				ConfigFiles: splitConfigFiles(summary.Labels[api.ConfigFilesLabel]),
				WorkingDir:  summary.Labels[api.WorkingDirLabel],
			}
			projects[name] = project
		}

		ports := make([]string, 0, len(summary.Ports))
		for _, port := range summary.Ports {
			if port.PublicPort > 0 {
				ports = append(ports, fmt.Sprintf("%d:%d", port.PublicPort, port.PrivatePort))
			}
		}

		project.Services = append(project.Services, ServiceStatus{
			Name:        summary.Labels[api.ServiceLabel],
			State:       strings.ToLower(summary.State),
			Health:      healthFromStatus(summary.Status),
			ExitCode:    exitCodeFromStatus(summary.Status),
			Image:       summary.Image,
			Ports:       ports,
			ContainerID: shortID(summary.ID),
		})
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	statuses := make([]ComposeStatus, 0, len(names))
	for _, name := range names {
		project := projects[name]
		project.Status = DeriveComposeStatus(project.containerStates())
		project.UpdatedAt = now
		statuses = append(statuses, *project)
	}
	return statuses, nil
}

// GetComposeStatus reads the containers of one project through the compose API.
func (c *DockerComposeClient) GetComposeStatus(ctx context.Context, projectName string) (*ComposeStatus, error) {
	if strings.TrimSpace(projectName) == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	containers, err := c.composeAPI.Ps(ctx, projectName, api.PsOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get project status: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectName)
	}

	status := &ComposeStatus{Name: projectName, UpdatedAt: time.Now()}
	for _, summary := range containers {
		ports := make([]string, 0, len(summary.Publishers))
		for _, port := range summary.Publishers {
			if port.PublishedPort > 0 {
				ports = append(ports, fmt.Sprintf("%d:%d", port.PublishedPort, port.TargetPort))
			}
		}

		if status.ConfigFiles == nil {
			status.ConfigFiles = splitConfigFiles(summary.Labels[api.ConfigFilesLabel])
			status.WorkingDir = summary.Labels[api.WorkingDirLabel]
		}

		status.Services = append(status.Services, ServiceStatus{
			Name:        summary.Service,
			State:       strings.ToLower(summary.State),
			Health:      strings.ToLower(summary.Health),
			ExitCode:    summary.ExitCode,
			Image:       summary.Image,
			Ports:       ports,
			ContainerID: shortID(summary.ID),
		})
	}
	status.Status = DeriveComposeStatus(status.containerStates())

	return status, nil
}

// DeclaredServices loads the project's compose files and returns the service
// names they declare, including services that never got a container.
func (c *DockerComposeClient) DeclaredServices(ctx context.Context, status ComposeStatus) ([]string, error) {
	if len(status.ConfigFiles) == 0 {
		return nil, fmt.Errorf("no compose files recorded for project %s", status.Name)
	}

	opts, err := cli.NewProjectOptions(
		status.ConfigFiles,
		cli.WithName(status.Name),
		cli.WithWorkingDirectory(status.WorkingDir),
		cli.WithOsEnv,
		cli.WithInterpolation(true),
	)
	if err != nil {
		return nil, err
	}

	project, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load compose project %s: %w", status.Name, err)
	}

	names := project.ServiceNames()
	sort.Strings(names)
	return names, nil
}

// DeriveComposeStatus folds container states into one project status:
// any failed container means error, anything still starting means running,
// a running container means done and everything else is idle.
func DeriveComposeStatus(containers []ContainerState) string {
	running, starting := false, false

	for _, c := range containers {
		state := strings.ToLower(c.State)
		health := strings.ToLower(c.Health)

		switch {
		case state == "dead",
			state == "exited" && c.ExitCode != 0,
			health == "unhealthy":
			return ComposeStatusError
		case state == "created",
			state == "restarting",
			health == "starting":
			starting = true
		case state == "running":
			running = true
		}
	}

	switch {
	case starting:
		return ComposeStatusRunning
	case running:
		return ComposeStatusDone
	default:
		return ComposeStatusIdle
	}
}

func (s ComposeStatus) containerStates() []ContainerState {
	states := make([]ContainerState, 0, len(s.Services))
	for _, service := range s.Services {
		states = append(states, ContainerState{
			State:    service.State,
			Health:   service.Health,
			ExitCode: service.ExitCode,
		})
	}
	return states
}

var (
	exitedPattern = regexp.MustCompile(`^Exited \((-?\d+)\)`)
	healthPattern = regexp.MustCompile(`\((?:health: )?(healthy|unhealthy|starting)\)`)
)

// exitCodeFromStatus parses the code out of a status like "Exited (137) 2 hours ago".
func exitCodeFromStatus(status string) int {
	match := exitedPattern.FindStringSubmatch(status)
	if match == nil {
		return 0
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return code
}

// healthFromStatus parses the health out of a status like "Up 3 minutes (unhealthy)".
func healthFromStatus(status string) string {
	match := healthPattern.FindStringSubmatch(status)
	if match == nil {
		return ""
	}
	return match[1]
}

func splitConfigFiles(label string) []string {
	if label == "" {
		return nil
	}
	files := make([]string, 0)
	for _, file := range strings.Split(label, ",") {
		if file = strings.TrimSpace(file); file != "" {
			files = append(files, file)
		}
	}
	return files
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
