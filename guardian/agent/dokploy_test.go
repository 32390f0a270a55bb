package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraguardian/infraguardian/guardian/agent/types"
)

func TestControlCompose(t *testing.T) {
	var called []string
	ok := func(ctx context.Context, composeID string) error {
		called = append(called, composeID)
		return nil
	}
	require.NoError(t, controlCompose(context.Background(), ok, "c1"))
	assert.Equal(t, []string{"c1"}, called)

	rejected := errors.New("dokploy /compose.deploy: 502")
	failing := func(ctx context.Context, composeID string) error {
		return rejected
	}

	err := controlCompose(context.Background(), failing, "c2")

	var agentErr types.AgentError
	require.True(t, errors.As(err, &agentErr))
	assert.Equal(t, types.AgentComponentSource, agentErr.Component)
	assert.Equal(t, types.AgentOperationControllingWorkload, agentErr.Operation)
	assert.Equal(t, "c2", agentErr.Context["composeId"])
	assert.False(t, types.IsRetryable(err))
	assert.ErrorIs(t, err, rejected)
}
