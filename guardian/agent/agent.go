package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/guardian/agent/workload"
)

// Agent wires the configured workload source, the monitor and the status
// reporter together.
type Agent struct {
	log            *zap.SugaredLogger
	config         types.Config
	source         monitoring.WorkloadSource
	monitor        *monitoring.Monitor
	statusReporter *StatusReporter
	registry       metrics.Registry
}

// AgentOption adds optional behaviour to the agent.
type AgentOption func(*agentOptions)

type agentOptions struct {
	handlers []monitoring.ChangeHandler
}

// WithExtraHandler registers a handler notified next to the status reporter.
func WithExtraHandler(handler monitoring.ChangeHandler) AgentOption {
	return func(o *agentOptions) {
		o.handlers = append(o.handlers, handler)
	}
}

func NewAgent(configPath string, opts ...AgentOption) (*Agent, error) {
	cfg, err := types.NewConfigManager(configPath).LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}

	log, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, types.NewConfigError(types.AgentOperationReadingConfig, err)
	}

	source, err := workload.NewSource(cfg.Source, log)
	if err != nil {
		return nil, err
	}

	return newAgentWithSource(*cfg, source, log, opts...)
}

func newAgentWithSource(cfg types.Config, source monitoring.WorkloadSource, log *zap.SugaredLogger, opts ...AgentOption) (*Agent, error) {
	options := &agentOptions{}
	for _, opt := range opts {
		opt(options)
	}

	statusReporter := NewStatusReporter(cfg.Notifications.Webhook, log)
	handlers := append([]monitoring.ChangeHandler{statusReporter}, options.handlers...)

	registry := metrics.NewRegistry()
	monitor, err := monitoring.NewMonitor(source, cfg.Monitor.CheckInterval, log,
		monitoring.WithChangeHandler(fanOut(handlers)),
		monitoring.WithNominalStatuses(cfg.Monitor.NominalStatuses...),
		monitoring.WithCompleteStatus(cfg.Monitor.CompleteStatus),
		monitoring.WithEvictAbsent(cfg.Monitor.EvictAbsent),
		monitoring.WithMetricsRegistry(registry),
	)
	if err != nil {
		return nil, types.NewAgentError(types.AgentComponentMonitoring, types.AgentOperationStartingMonitor, err, false)
	}

	return &Agent{
		log:            log,
		config:         cfg,
		source:         source,
		monitor:        monitor,
		statusReporter: statusReporter,
		registry:       registry,
	}, nil
}

func (a *Agent) Start() error {
	a.log.Infow("Starting Agent",
		"source", a.config.Source.Type,
		"checkInterval", a.monitor.CheckInterval(),
		"nominalStatuses", a.config.Monitor.NominalStatuses,
		"webhookEnabled", a.config.Notifications.Webhook != nil,
	)

	a.monitor.Start()
	return nil
}

func (a *Agent) Stop() error {
	a.log.Info("Stopping Agent")

	a.monitor.Stop()

	a.log.Infow("Agent stopped",
		"cycles", metrics.GetOrRegisterCounter(monitoring.MetricsCycleCount, a.registry).Count(),
		"failedCycles", metrics.GetOrRegisterCounter(monitoring.MetricsFailedCycleCount, a.registry).Count(),
		"transitions", metrics.GetOrRegisterCounter(monitoring.MetricsTransitionCount, a.registry).Count(),
	)
	_ = a.log.Sync()
	return nil
}

// Monitor exposes the monitor for one-shot queries.
func (a *Agent) Monitor() *monitoring.Monitor {
	return a.monitor
}

// Source exposes the configured workload source.
func (a *Agent) Source() monitoring.WorkloadSource {
	return a.source
}

// DokploySource returns the Dokploy source or an error when another source
// type is configured.
func (a *Agent) DokploySource() (*workload.DokploySource, error) {
	source, ok := a.source.(*workload.DokploySource)
	if !ok {
		return nil, fmt.Errorf("source type %q does not support control operations, dokploy required", a.config.Source.Type)
	}
	return source, nil
}

// fanOut notifies every handler and joins their errors. A panicking handler
// is reported as an error and does not stop the handlers after it.
func fanOut(handlers []monitoring.ChangeHandler) monitoring.ChangeHandler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return monitoring.ChangeHandlerFunc(func(ctx context.Context, event monitoring.TransitionEvent) error {
		var errs []error
		for _, handler := range handlers {
			if err := notifyHandler(ctx, handler, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func notifyHandler(ctx context.Context, handler monitoring.ChangeHandler, event monitoring.TransitionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("change handler panic: %v", r)
		}
	}()
	return handler.OnStatusChange(ctx, event)
}
