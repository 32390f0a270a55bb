package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infraguardian/infraguardian/guardian/agent/types"
	"github.com/infraguardian/infraguardian/shared-lib/dokploy"
)

var dokployCmd = &cobra.Command{
	Use:   "dokploy {deploy | start | stop | deployments | domains | project}",
	Short: "operate Dokploy composes, requires the dokploy source",
}

var dokployDeployCmd = &cobra.Command{
	Use:   "deploy compose_id",
	Short: "queue a (re)deployment of a compose",
	Args:  cobra.ExactArgs(1),
	RunE: withDokploy(func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, composeID string) error {
		if err := controlCompose(ctx, client.DeployCompose, composeID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deployment of %s queued\n", composeID)
		return nil
	}),
}

var dokployStartCmd = &cobra.Command{
	Use:   "start compose_id",
	Short: "start every service of a compose",
	Args:  cobra.ExactArgs(1),
	RunE: withDokploy(func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, composeID string) error {
		if err := controlCompose(ctx, client.StartCompose, composeID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "compose %s started\n", composeID)
		return nil
	}),
}

var dokployStopCmd = &cobra.Command{
	Use:   "stop compose_id",
	Short: "stop every service of a compose",
	Args:  cobra.ExactArgs(1),
	RunE: withDokploy(func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, composeID string) error {
		if err := controlCompose(ctx, client.StopCompose, composeID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "compose %s stopped\n", composeID)
		return nil
	}),
}

var dokployDeploymentsCmd = &cobra.Command{
	Use:   "deployments [compose_id]",
	Short: "list the deployment history of a compose, or of every resource without an id",
	Args:  cobra.MaximumNArgs(1),
	RunE: withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		source, err := agent.DokploySource()
		if err != nil {
			return err
		}

		var deployments []dokploy.Deployment
		if len(args) == 1 {
			deployments, err = source.Client().GetDeploymentsByCompose(ctx, args[0])
		} else {
			deployments, err = source.Client().GetAllDeployments(ctx)
		}
		if err != nil {
			return err
		}
		renderDeployments(cmd.OutOrStdout(), deployments)
		return nil
	}),
}

var dokployDomainsCmd = &cobra.Command{
	Use:   "domains compose_id",
	Short: "list the domains routed to a compose",
	Args:  cobra.ExactArgs(1),
	RunE: withDokploy(func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, composeID string) error {
		domains, err := client.GetDomainsByCompose(ctx, composeID)
		if err != nil {
			return err
		}
		renderDomains(cmd.OutOrStdout(), domains)
		return nil
	}),
}

var dokployProjectCmd = &cobra.Command{
	Use:   "project project_id",
	Short: "list the composes of a project by environment",
	Args:  cobra.ExactArgs(1),
	RunE: withDokploy(func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, projectID string) error {
		project, err := client.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		renderProject(cmd.OutOrStdout(), project)
		return nil
	}),
}

// controlCompose runs a control operation and tags its failure with the
// compose it targeted.
func controlCompose(ctx context.Context, operation func(context.Context, string) error, composeID string) error {
	if err := operation(ctx, composeID); err != nil {
		return types.NewSourceError(types.AgentOperationControllingWorkload, err, false).
			WithContext("composeId", composeID)
	}
	return nil
}

// withDokploy passes the first argument as the Dokploy resource ID.
func withDokploy(fn func(ctx context.Context, client *dokploy.Client, cmd *cobra.Command, id string) error) func(cmd *cobra.Command, args []string) error {
	return withAgent(func(ctx context.Context, agent *Agent, cmd *cobra.Command, args []string) error {
		source, err := agent.DokploySource()
		if err != nil {
			return err
		}
		return fn(ctx, source.Client(), cmd, args[0])
	})
}
