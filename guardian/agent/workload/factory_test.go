package workload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infraguardian/infraguardian/guardian/agent/types"
)

func TestNewSource(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()

	source, err := NewSource(types.SourceConfig{
		Type:    types.SourceTypeDokploy,
		Dokploy: &types.DokployConfig{URL: "http://localhost:3000/api", APIKey: "key"},
	}, log)
	require.NoError(t, err)
	assert.IsType(t, &DokploySource{}, source)

	source, err = NewSource(types.SourceConfig{
		Type:   types.SourceTypeStatic,
		Static: &types.StaticConfig{Path: "inventory.yaml"},
	}, log)
	require.NoError(t, err)
	assert.IsType(t, &StaticSource{}, source)

	for _, cfg := range []types.SourceConfig{
		{Type: types.SourceTypeDokploy},
		{Type: types.SourceTypeStatic},
		{Type: "nomad"},
	} {
		_, err := NewSource(cfg, log)
		var agentErr types.AgentError
		require.True(t, errors.As(err, &agentErr), cfg.Type)
		assert.Equal(t, types.AgentComponentConfig, agentErr.Component)
	}
}

func TestDockerParams(t *testing.T) {
	params, err := DockerParams(&types.ComposeConfig{})
	require.NoError(t, err)
	assert.Nil(t, params.ViaSocket)
	assert.Nil(t, params.ViaHttp)

	params, err = DockerParams(&types.ComposeConfig{Host: "unix:///var/run/docker.sock"})
	require.NoError(t, err)
	require.NotNil(t, params.ViaSocket)
	assert.Equal(t, "unix:///var/run/docker.sock", params.ViaSocket.SocketPath)

	params, err = DockerParams(&types.ComposeConfig{
		Host:       "tcp://10.0.0.5:2376",
		CaCertPath: "/certs/ca.pem",
		CertPath:   "/certs/cert.pem",
		KeyPath:    "/certs/key.pem",
	})
	require.NoError(t, err)
	require.NotNil(t, params.ViaHttp)
	assert.Equal(t, "tcp", params.ViaHttp.Protocol)
	assert.Equal(t, "10.0.0.5", params.ViaHttp.Host)
	assert.Equal(t, uint16(2376), params.ViaHttp.Port)

	_, err = DockerParams(&types.ComposeConfig{Host: "tcp://10.0.0.5", CertPath: "/certs/cert.pem"})
	assert.Error(t, err)
}
