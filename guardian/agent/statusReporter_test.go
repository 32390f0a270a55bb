package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
)

func transition(previous, status string) monitoring.TransitionEvent {
	return monitoring.TransitionEvent{
		WorkloadID:     "c1",
		Name:           "api",
		ProjectName:    "shop",
		PreviousStatus: &previous,
		Status:         status,
		Changed:        true,
		ObservedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStatusReporter_PostsEvent(t *testing.T) {
	var received StatusChangeEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hook-token", r.Header.Get("Authorization"))
		assert.Equal(t, "platform", r.Header.Get("X-Team"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	reporter := NewStatusReporter(&types.WebhookConfig{
		URL:     server.URL,
		Token:   "hook-token",
		Headers: map[string]string{"X-Team": "platform"},
	}, zaptest.NewLogger(t).Sugar())

	err := reporter.OnStatusChange(context.Background(), transition("running", "error"))
	require.NoError(t, err)

	_, parseErr := uuid.Parse(received.EventID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "c1", received.WorkloadID)
	assert.Equal(t, "shop", received.Project)
	assert.Equal(t, "running", received.PreviousStatus)
	assert.Equal(t, "error", received.Status)
	assert.True(t, received.ObservedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestStatusReporter_RejectedDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	reporter := NewStatusReporter(&types.WebhookConfig{URL: server.URL}, zaptest.NewLogger(t).Sugar())

	err := reporter.OnStatusChange(context.Background(), transition("done", "error"))

	var agentErr types.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, types.AgentComponentNotification, agentErr.Component)
	assert.Contains(t, agentErr.Context, "eventId")
}

func TestStatusReporter_LogOnly(t *testing.T) {
	reporter := NewStatusReporter(nil, zaptest.NewLogger(t).Sugar())

	assert.NoError(t, reporter.OnStatusChange(context.Background(), transition("idle", "running")))
}
