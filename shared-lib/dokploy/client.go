// Package dokploy is a client for the Dokploy REST API.
//
// Only the endpoints needed to observe and control compose deployments are
// covered: projects, composes, deployments and domains.
package dokploy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	httplib "github.com/infraguardian/infraguardian/shared-lib/http"
	"github.com/infraguardian/infraguardian/shared-lib/http/auth"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Client talks to a single Dokploy instance.
type Client struct {
	baseURL    string
	auth       *auth.AuthConfig
	httpClient *http.Client
	maxRetries uint64
	backoff    func() backoff.BackOff
	log        *zap.SugaredLogger
}

// ClientOption defines functional options for configuring the client
type ClientOption func(*Client)

// WithTimeout sets the timeout of every HTTP round trip.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = uint64(retries)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBackOff replaces the retry schedule, mostly useful in tests.
func WithBackOff(factory func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.backoff = factory
	}
}

// NewClient creates a client for the API rooted at baseURL, for example
// https://dokploy.example.com/api.
func NewClient(baseURL, apiKey string, log *zap.SugaredLogger, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("dokploy API URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("dokploy API key is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth.NewAPIKeyAuth(apiKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		log: log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GetAllProjects returns every project with its environments and composes.
func (c *Client) GetAllProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/project.all", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.get(ctx, "/project.one", map[string]interface{}{"projectId": projectID}, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) GetCompose(ctx context.Context, composeID string) (*Compose, error) {
	var compose Compose
	if err := c.get(ctx, "/compose.one", map[string]interface{}{"composeId": composeID}, &compose); err != nil {
		return nil, err
	}
	return &compose, nil
}

// GetComposeServices returns the service names declared by a compose.
func (c *Client) GetComposeServices(ctx context.Context, composeID string) ([]string, error) {
	var refs []ServiceRef
	if err := c.get(ctx, "/compose.loadServices", map[string]interface{}{"composeId": composeID}, &refs); err != nil {
		return nil, err
	}

	services := make([]string, 0, len(refs))
	for _, ref := range refs {
		services = append(services, ref.Name)
	}
	return services, nil
}

func (c *Client) StartCompose(ctx context.Context, composeID string) error {
	return c.post(ctx, "/compose.start", map[string]string{"composeId": composeID})
}

func (c *Client) StopCompose(ctx context.Context, composeID string) error {
	return c.post(ctx, "/compose.stop", map[string]string{"composeId": composeID})
}

// DeployCompose queues a (re)deployment of the compose.
func (c *Client) DeployCompose(ctx context.Context, composeID string) error {
	return c.post(ctx, "/compose.deploy", map[string]string{"composeId": composeID})
}

// GetAllDeployments returns the deployments of every application and compose.
func (c *Client) GetAllDeployments(ctx context.Context) ([]Deployment, error) {
	var deployments []Deployment
	if err := c.get(ctx, "/deployment.all", nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// GetDeploymentsByCompose returns the deployment history of a compose.
func (c *Client) GetDeploymentsByCompose(ctx context.Context, composeID string) ([]Deployment, error) {
	var deployments []Deployment
	if err := c.get(ctx, "/deployment.allByCompose", map[string]interface{}{"composeId": composeID}, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

func (c *Client) GetDomainsByCompose(ctx context.Context, composeID string) ([]Domain, error) {
	var domains []Domain
	if err := c.get(ctx, "/domain.byComposeId", map[string]interface{}{"composeId": composeID}, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// GetAllComposes flattens the project tree into one entry per compose.
// Entries without a composeId are skipped.
func (c *Client) GetAllComposes(ctx context.Context) ([]ComposeEntry, error) {
	projects, err := c.GetAllProjects(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ComposeEntry, 0)
	for _, project := range projects {
		projectName := orDefault(project.Name, UnknownName)

		for _, environment := range project.Environments {
			environmentName := orDefault(environment.Name, UnknownName)

			for _, compose := range environment.Compose {
				if compose.ComposeID == "" {
					c.log.Debugw("Skipping compose without id", "project", projectName, "name", compose.Name)
					continue
				}
				compose.ComposeStatus = orDefault(compose.ComposeStatus, UnknownStatus)
				entries = append(entries, ComposeEntry{
					Compose:         compose,
					ProjectID:       project.ProjectID,
					ProjectName:     projectName,
					EnvironmentID:   environment.EnvironmentID,
					EnvironmentName: environmentName,
				})
			}
		}
	}
	return entries, nil
}

// GetComposeHealth reads a compose and its declared services.
func (c *Client) GetComposeHealth(ctx context.Context, composeID string) (*ComposeHealth, error) {
	compose, err := c.GetCompose(ctx, composeID)
	if err != nil {
		return nil, err
	}
	services, err := c.GetComposeServices(ctx, composeID)
	if err != nil {
		return nil, err
	}

	return &ComposeHealth{
		ComposeID:     composeID,
		Name:          orDefault(compose.Name, UnknownName),
		Status:        orDefault(compose.ComposeStatus, UnknownStatus),
		ServicesCount: len(services),
		Services:      services,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]interface{}, out interface{}) error {
	return c.do(ctx, endpoint, func() (*http.Request, error) {
		return httplib.NewGetRequest(ctx, c.baseURL+endpoint, c.auth, params)
	}, out, true)
}

// post sends a control operation exactly once. A failed attempt may already
// have been accepted by Dokploy, so it is never repeated.
func (c *Client) post(ctx context.Context, endpoint string, body interface{}) error {
	return c.do(ctx, endpoint, func() (*http.Request, error) {
		return httplib.NewPostRequest(ctx, c.baseURL+endpoint, c.auth, body)
	}, nil, false)
}

// do sends the request built by newRequest. With retry set, network errors,
// 5xx and 429 responses are retried up to maxRetries; other 4xx responses
// fail immediately.
func (c *Client) do(ctx context.Context, endpoint string, newRequest func() (*http.Request, error), out interface{}, retry bool) error {
	attempt := 0
	operation := func() error {
		attempt++

		req, err := newRequest()
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if err := httplib.DecodeJSON(resp, out); err != nil {
			var statusErr *httplib.StatusError
			if errors.As(err, &statusErr) && statusErr.Temporary() {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warnw("Dokploy request failed, retrying", "endpoint", endpoint, "attempt", attempt, "retryIn", wait, "error", err)
	}

	retries := c.maxRetries
	if !retry {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), retries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("dokploy %s: %w", endpoint, err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
