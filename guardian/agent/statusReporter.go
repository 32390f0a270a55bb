package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	httplib "github.com/infraguardian/infraguardian/shared-lib/http"
	"github.com/infraguardian/infraguardian/shared-lib/http/auth"
)

// StatusChangeEvent is the webhook payload sent for every transition.
type StatusChangeEvent struct {
	EventID        string    `json:"eventId"`
	WorkloadID     string    `json:"workloadId"`
	Name           string    `json:"name"`
	Project        string    `json:"project"`
	PreviousStatus string    `json:"previousStatus"`
	Status         string    `json:"status"`
	ObservedAt     time.Time `json:"observedAt"`
}

// StatusReporter forwards status transitions to a webhook. Without a webhook
// it only logs them.
type StatusReporter struct {
	config     *types.WebhookConfig
	auth       *auth.AuthConfig
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewStatusReporter(config *types.WebhookConfig, log *zap.SugaredLogger) *StatusReporter {
	sr := &StatusReporter{
		config: config,
		log:    log,
	}
	if config != nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = types.DefaultWebhookTimeout
		}
		sr.httpClient = &http.Client{Timeout: timeout}
		if config.Token != "" {
			sr.auth = auth.NewBearerAuth(config.Token)
		}
	}
	return sr
}

// OnStatusChange implements monitoring.ChangeHandler.
func (sr *StatusReporter) OnStatusChange(ctx context.Context, event monitoring.TransitionEvent) error {
	sr.log.Infow("Workload status changed",
		"workloadId", event.WorkloadID,
		"name", event.Name,
		"project", event.ProjectName,
		"previousStatus", event.Previous(),
		"status", event.Status,
	)

	if sr.config == nil || sr.config.URL == "" {
		return nil
	}

	payload := StatusChangeEvent{
		EventID:        uuid.NewString(),
		WorkloadID:     event.WorkloadID,
		Name:           event.Name,
		Project:        event.ProjectName,
		PreviousStatus: event.Previous(),
		Status:         event.Status,
		ObservedAt:     event.ObservedAt,
	}

	req, err := httplib.NewPostRequest(ctx, sr.config.URL, sr.auth, payload)
	if err != nil {
		return types.NewNotificationError(err, false)
	}
	for key, value := range sr.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := sr.httpClient.Do(req)
	if err != nil {
		return types.NewNotificationError(fmt.Errorf("failed to send status change: %w", err), true).
			WithContext("eventId", payload.EventID)
	}
	defer resp.Body.Close()

	if err := httplib.DecodeJSON(resp, nil); err != nil {
		return types.NewNotificationError(err, false).WithContext("eventId", payload.EventID)
	}

	sr.log.Debugw("Status change delivered", "eventId", payload.EventID, "workloadId", event.WorkloadID)
	return nil
}
