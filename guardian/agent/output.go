package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/infraguardian/infraguardian/guardian/agent/monitoring"
	"github.com/infraguardian/infraguardian/shared-lib/dokploy"
	"github.com/infraguardian/infraguardian/shared-lib/pointers"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(out io.Writer) table.Writer {
	tableStyle := table.StyleDefault
	tableStyle.Options = table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateFooter:  false,
		SeparateHeader:  true,
		SeparateRows:    false,
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(tableStyle)
	return t
}

func renderEvents(out io.Writer, events []monitoring.TransitionEvent) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name", "Project", "Previous", "Status", "Changed", "Observed"})
	for _, event := range events {
		previous := pointers.DerefOr(event.PreviousStatus, "-")
		t.AppendRow(table.Row{event.WorkloadID, event.Name, event.ProjectName, previous, event.Status, event.Changed, event.ObservedAt.Format(timeLayout)})
	}
	t.Render()
}

func renderHealth(out io.Writer, snapshot monitoring.HealthSnapshot) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Services", "Healthy", "Error"})
	t.AppendRow(table.Row{
		snapshot.WorkloadID,
		snapshot.Name,
		snapshot.Status,
		fmt.Sprintf("%d (%s)", snapshot.ServiceCount, strings.Join(snapshot.Services, ", ")),
		snapshot.Healthy,
		snapshot.Error,
	})
	t.Render()
}

func renderStats(out io.Writer, stats monitoring.MonitoringStats) {
	statuses := make([]string, 0, len(stats.StatusDistribution))
	for status := range stats.StatusDistribution {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	t := newTable(out)
	t.AppendHeader(table.Row{"Status", "Workloads"})
	for _, status := range statuses {
		t.AppendRow(table.Row{status, stats.StatusDistribution[status]})
	}
	t.AppendFooter(table.Row{"Total", stats.TotalWorkloads})
	t.Render()

	fmt.Fprintf(out, "\nactive: %t  interval: %s  tracked: %d\n", stats.Active, stats.CheckInterval, stats.TrackedWorkloads)
}

func renderDeployments(out io.Writer, deployments []dokploy.Deployment) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Created"})
	for _, deployment := range deployments {
		created := deployment.CreatedAt
		if ts := deployment.Created(); !ts.IsZero() {
			created = ts.Format(timeLayout)
		}
		t.AppendRow(table.Row{deployment.DeploymentID, deployment.Title, deployment.Status, created})
	}
	t.Render()
}

func renderDomains(out io.Writer, domains []dokploy.Domain) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Host", "Path", "Port", "HTTPS", "Service"})
	for _, domain := range domains {
		t.AppendRow(table.Row{domain.Host, domain.Path, domain.Port, domain.HTTPS, domain.ServiceName})
	}
	t.Render()
}

func renderProject(out io.Writer, project *dokploy.Project) {
	fmt.Fprintf(out, "%s (%s)\n", project.Name, project.ProjectID)

	t := newTable(out)
	t.AppendHeader(table.Row{"Environment", "Compose ID", "Name", "Status"})
	for _, environment := range project.Environments {
		for _, compose := range environment.Compose {
			t.AppendRow(table.Row{environment.Name, compose.ComposeID, compose.Name, compose.ComposeStatus})
		}
	}
	t.Render()
}
