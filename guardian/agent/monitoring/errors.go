package monitoring

import (
	"fmt"
)

// FetchError wraps a WorkloadSource failure. It is contained per cycle.
type FetchError struct {
	Operation  string
	WorkloadID string
	Err        error
}

func (e *FetchError) Error() string {
	if e.WorkloadID != "" {
		return fmt.Sprintf("fetch %s for workload %s: %v", e.Operation, e.WorkloadID, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Operation, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CallbackError wraps a failure raised by the registered change handler.
type CallbackError struct {
	WorkloadID string
	Err        error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("change handler failed for workload %s: %v", e.WorkloadID, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned by NewMonitor and is never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid monitor configuration: %s %s", e.Field, e.Message)
}
