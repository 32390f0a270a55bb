package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
)

const defaultConfigPath = "guardian/agent/config/config.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "guardian",
	Short:         "Watches deployed workloads and reports status changes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the monitor loop and report status changes until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runAgent,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "run a single monitoring cycle and print every workload",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		events, err := agent.Monitor().RunCycle(ctx)
		if err != nil {
			return err
		}
		renderEvents(cmd.OutOrStdout(), events)
		return nil
	}),
}

var unhealthyCmd = &cobra.Command{
	Use:   "unhealthy",
	Short: "list workloads whose status is outside the nominal set",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		events, err := agent.Monitor().Unhealthy(ctx)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "all workloads are nominal")
			return nil
		}
		renderEvents(cmd.OutOrStdout(), events)
		return nil
	}),
}

var healthCmd = &cobra.Command{
	Use:   "health workload_id",
	Short: "evaluate the health of one workload",
	Args:  cobra.ExactArgs(1),
	RunE: withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		snapshot := agent.Monitor().HealthOf(ctx, args[0])
		renderHealth(cmd.OutOrStdout(), snapshot)
		if !snapshot.Healthy {
			return fmt.Errorf("workload %s is not healthy", args[0])
		}
		return nil
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print the status distribution of all workloads",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		stats, err := agent.Monitor().Stats(ctx)
		if err != nil {
			return err
		}
		renderStats(cmd.OutOrStdout(), stats)
		return nil
	}),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to the YAML configuration file, empty to use environment only")
	rootCmd.PersistentFlags().Duration("timeout", 60*time.Second, "timeout of one-shot commands")
	runCmd.Flags().Bool("print-events", false, "print status changes to stdout")

	rootCmd.AddCommand(runCmd, checkCmd, unhealthyCmd, healthCmd, statsCmd, dokployCmd)
	dokployCmd.AddCommand(dokployDeployCmd, dokployStartCmd, dokployStopCmd, dokployDeploymentsCmd, dokployDomainsCmd, dokployProjectCmd)
}

type agentCommand func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error

// withAgent builds the agent from --config and runs fn under --timeout.
func withAgent(fn agentCommand) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		agent, err := NewAgent(configPath)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		return fn(ctx, agent, cmd, args)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	printEvents, _ := cmd.Flags().GetBool("print-events")

	var opts []AgentOption
	var events *monitoring.ChannelHandler
	if printEvents {
		events = monitoring.NewChannelHandler(64)
		opts = append(opts, WithExtraHandler(events))
	}

	agent, err := NewAgent(configPath, opts...)
	if err != nil {
		return err
	}

	if err := agent.Start(); err != nil {
		return err
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// nil unless --print-events is set
	var eventCh <-chan monitoring.TransitionEvent
	if events != nil {
		eventCh = events.Events()
	}

	for {
		select {
		case event := <-eventCh:
			renderEvents(cmd.OutOrStdout(), []monitoring.TransitionEvent{event})
		case <-sigChan:
			return agent.Stop()
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
