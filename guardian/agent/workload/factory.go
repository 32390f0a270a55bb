package workload

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/shared-lib/dokploy"
	"github.com/infraguardian/infraguardian/shared-lib/workloads"
)

// NewSource builds the WorkloadSource selected by cfg.Type.
func NewSource(cfg types.SourceConfig, log *zap.SugaredLogger) (monitoring.WorkloadSource, error) {
	log = log.With("source", cfg.Type)

	switch cfg.Type {
	case types.SourceTypeDokploy:
		if cfg.Dokploy == nil {
			return nil, sourceConfigError(cfg.Type, "missing dokploy section")
		}
		client, err := dokploy.NewClient(cfg.Dokploy.URL, cfg.Dokploy.APIKey, log,
			dokploy.WithTimeout(cfg.Dokploy.Timeout),
			dokploy.WithMaxRetries(cfg.Dokploy.MaxRetries),
		)
		if err != nil {
			return nil, sourceConfigError(cfg.Type, err.Error())
		}
		return NewDokploySource(client, log), nil

	case types.SourceTypeCompose:
		compose := cfg.Compose
		if compose == nil {
			compose = &types.ComposeConfig{}
		}
		params, err := DockerParams(compose)
		if err != nil {
			return nil, sourceConfigError(cfg.Type, err.Error())
		}
		client, err := workloads.NewDockerComposeClient(params)
		if err != nil {
			return nil, types.NewSourceError(types.AgentOperationCreatingSource, err, true)
		}
		return NewComposeSource(client, compose.Projects, log), nil

	case types.SourceTypeHelm:
		helm := cfg.Helm
		if helm == nil {
			helm = &types.HelmConfig{}
		}
		client, err := workloads.NewHelmClient(helm.KubeconfigPath, helm.Namespace, log)
		if err != nil {
			return nil, types.NewSourceError(types.AgentOperationCreatingSource, err, false)
		}
		return NewHelmSource(client, log), nil

	case types.SourceTypeStatic:
		if cfg.Static == nil {
			return nil, sourceConfigError(cfg.Type, "missing static section")
		}
		return NewStaticSource(cfg.Static.Path, log), nil

	default:
		return nil, sourceConfigError(cfg.Type, "unsupported source type")
	}
}

// DockerParams turns the compose host settings into connectivity params. TLS
// settings switch a tcp host to an authenticated HTTPS connection.
func DockerParams(cfg *types.ComposeConfig) (workloads.DockerConnectivityParams, error) {
	if cfg.Host == "" {
		return workloads.DockerConnectivityParams{}, nil
	}
	if cfg.CertPath == "" && cfg.CaCertPath == "" {
		return workloads.DockerConnectivityParams{
			ViaSocket: &workloads.DockerConnectionViaSocket{SocketPath: cfg.Host},
		}, nil
	}

	u, err := url.Parse(cfg.Host)
	if err != nil {
		return workloads.DockerConnectivityParams{}, fmt.Errorf("invalid docker host %q: %w", cfg.Host, err)
	}
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil {
		return workloads.DockerConnectivityParams{}, fmt.Errorf("docker host %q needs an explicit port for TLS", cfg.Host)
	}

	return workloads.DockerConnectivityParams{
		ViaHttp: &workloads.DockerConnectionViaHttp{
			Protocol:   u.Scheme,
			Host:       u.Hostname(),
			Port:       uint16(port),
			CaCertPath: cfg.CaCertPath,
			CertPath:   cfg.CertPath,
			KeyPath:    cfg.KeyPath,
		},
	}, nil
}

func sourceConfigError(sourceType, message string) error {
	return types.NewConfigError(types.AgentOperationCreatingSource, errors.New(message)).
		WithContext("sourceType", sourceType)
}
