package types

import (
	"errors"
	"fmt"
)

type AgentComponent string

const (
	AgentComponentConfig       AgentComponent = "config"
	AgentComponentMonitoring   AgentComponent = "monitoring"
	AgentComponentSource       AgentComponent = "source"
	AgentComponentNotification AgentComponent = "notification"
)

type AgentOperation string

const (
	AgentOperationReadingConfig           AgentOperation = "reading-config"
	AgentOperationReadingValidatingConfig AgentOperation = "validating-config"
	AgentOperationCreatingSource          AgentOperation = "creating-source"
	AgentOperationListingWorkloads        AgentOperation = "listing-workloads"
	AgentOperationReadingWorkloadDetail   AgentOperation = "reading-workload-detail"
	AgentOperationControllingWorkload     AgentOperation = "controlling-workload"
	AgentOperationReportingStatus         AgentOperation = "reporting-status"
	AgentOperationStartingMonitor         AgentOperation = "starting-monitor"
)

// AgentError provides structured error handling
type AgentError struct {
	Component AgentComponent
	Operation AgentOperation
	Err       error
	Retryable bool
	Context   map[string]interface{}
}

func (e AgentError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s:%s] %v (context: %v)", e.Component, e.Operation, e.Err, e.Context)
	}
	return fmt.Sprintf("[%s:%s] %v", e.Component, e.Operation, e.Err)
}

func (e AgentError) Unwrap() error {
	return e.Err
}

func NewAgentError(component AgentComponent, operation AgentOperation, err error, retryable bool) AgentError {
	return AgentError{
		Component: component,
		Operation: operation,
		Err:       err,
		Retryable: retryable,
	}
}

func NewSourceError(operation AgentOperation, err error, retryable bool) AgentError {
	return NewAgentError(AgentComponentSource, operation, err, retryable)
}

func NewConfigError(operation AgentOperation, err error) AgentError {
	return NewAgentError(AgentComponentConfig, operation, err, false)
}

func NewNotificationError(err error, retryable bool) AgentError {
	return NewAgentError(AgentComponentNotification, AgentOperationReportingStatus, err, retryable)
}

func (e AgentError) WithContext(key string, value interface{}) AgentError {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	e.Context = ctx
	return e
}

// IsRetryable reports whether any AgentError in err's chain is marked retryable.
func IsRetryable(err error) bool {
	var agentErr AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Retryable
	}
	return false
}
