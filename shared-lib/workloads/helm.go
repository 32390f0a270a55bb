package workloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// InstanceLabel is the label charts put on every object of a release.
const InstanceLabel = "app.kubernetes.io/instance"

// HelmClient reads releases and their pods. It keeps one action
// configuration per namespace.
type HelmClient struct {
	settings   *cli.EnvSettings
	kubeClient kubernetes.Interface
	namespace  string
	log        *zap.SugaredLogger

	mu        sync.Mutex
	configs   map[string]*action.Configuration
	newConfig func(namespace string) (*action.Configuration, error)
}

// HelmError represents typed Helm errors
type HelmError struct {
	Type    string
	Message string
	Err     error
}

func (e *HelmError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *HelmError) Unwrap() error {
	return e.Err
}

// Error types
const (
	ErrorTypeNotFound     = "NotFound"
	ErrorTypeOther        = "Other"
	ErrorTypeInvalidInput = "InvalidInput"
	ErrorTypeRelease      = "Release"
)

// ReleaseStatus summarises one Helm release.
type ReleaseStatus struct {
	Name        string
	Namespace   string
	Status      release.Status
	Revision    int
	Chart       string
	AppVersion  string
	Description string
	Updated     time.Time
}

// PodStatus is the state of one pod belonging to a release.
type PodStatus struct {
	Name  string
	Phase corev1.PodPhase
	Ready bool
}

// NewHelmClient creates a client for the cluster in kubeconfigPath, or the
// in-cluster config when the path is empty. An empty namespace covers every
// namespace.
func NewHelmClient(kubeconfigPath, namespace string, log *zap.SugaredLogger) (*HelmClient, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	settings := cli.New()
	if kubeconfigPath != "" {
		settings.KubeConfig = kubeconfigPath
	}

	kubeClient, err := createKubeClient(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	c := &HelmClient{
		settings:   settings,
		kubeClient: kubeClient,
		namespace:  namespace,
		log:        log,
		configs:    make(map[string]*action.Configuration),
	}
	c.newConfig = c.initConfig
	return c, nil
}

// createKubeClient creates a Kubernetes client
func createKubeClient(kubeconfigPath string) (kubernetes.Interface, error) {
	var config *rest.Config
	var err error

	if kubeconfigPath != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		config, err = rest.InClusterConfig()
	}

	if err != nil {
		return nil, err
	}

	return kubernetes.NewForConfig(config)
}

func (c *HelmClient) initConfig(namespace string) (*action.Configuration, error) {
	config := new(action.Configuration)
	if err := config.Init(c.settings.RESTClientGetter(), namespace, os.Getenv("HELM_DRIVER"), c.log.Debugf); err != nil {
		return nil, fmt.Errorf("failed to initialize helm configuration: %w", err)
	}
	return config, nil
}

func (c *HelmClient) config(namespace string) (*action.Configuration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if config, ok := c.configs[namespace]; ok {
		return config, nil
	}
	config, err := c.newConfig(namespace)
	if err != nil {
		return nil, err
	}
	c.configs[namespace] = config
	return config, nil
}

// ListReleases returns the latest revision of every release in the client's
// namespace scope, whatever its state.
func (c *HelmClient) ListReleases(ctx context.Context) ([]ReleaseStatus, error) {
	config, err := c.config(c.namespace)
	if err != nil {
		return nil, err
	}

	list := action.NewList(config)
	list.AllNamespaces = c.namespace == ""
	list.All = true
	list.SetStateMask()

	releases, err := list.Run()
	if err != nil {
		return nil, &HelmError{
			Type:    ErrorTypeRelease,
			Message: "failed to list releases",
			Err:     err,
		}
	}

	statuses := make([]ReleaseStatus, 0, len(releases))
	for _, rel := range releases {
		statuses = append(statuses, toReleaseStatus(rel))
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Namespace != statuses[j].Namespace {
			return statuses[i].Namespace < statuses[j].Namespace
		}
		return statuses[i].Name < statuses[j].Name
	})
	return statuses, nil
}

func (c *HelmClient) GetReleaseStatus(ctx context.Context, releaseName, namespace string) (*ReleaseStatus, error) {
	if strings.TrimSpace(releaseName) == "" {
		return nil, &HelmError{
			Type:    ErrorTypeInvalidInput,
			Message: "release name cannot be empty",
		}
	}

	config, err := c.config(namespace)
	if err != nil {
		return nil, err
	}

	rel, err := action.NewStatus(config).Run(releaseName)
	if err != nil {
		errType := ErrorTypeOther
		if errors.Is(err, driver.ErrReleaseNotFound) {
			errType = ErrorTypeNotFound
		}
		return nil, &HelmError{
			Type:    errType,
			Message: fmt.Sprintf("failed to get status for release %s/%s", namespace, releaseName),
			Err:     err,
		}
	}
	if rel == nil {
		return nil, &HelmError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("release %s/%s not found", namespace, releaseName),
		}
	}

	status := toReleaseStatus(rel)
	return &status, nil
}

// ReleasePods lists the pods labelled with the release's instance label.
func (c *HelmClient) ReleasePods(ctx context.Context, releaseName, namespace string) ([]PodStatus, error) {
	pods, err := c.kubeClient.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", InstanceLabel, releaseName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods of release %s/%s: %w", namespace, releaseName, err)
	}

	statuses := make([]PodStatus, 0, len(pods.Items))
	for _, pod := range pods.Items {
		statuses = append(statuses, PodStatus{
			Name:  pod.Name,
			Phase: pod.Status.Phase,
			Ready: podReady(pod),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}

func podReady(pod corev1.Pod) bool {
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}

func toReleaseStatus(rel *release.Release) ReleaseStatus {
	status := ReleaseStatus{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Revision:  rel.Version,
	}
	if rel.Info != nil {
		status.Status = rel.Info.Status
		status.Description = rel.Info.Description
		status.Updated = rel.Info.LastDeployed.Time
	}
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		status.Chart = fmt.Sprintf("%s-%s", rel.Chart.Metadata.Name, rel.Chart.Metadata.Version)
		status.AppVersion = rel.Chart.Metadata.AppVersion
	}
	return status
}
