package view

import (
	"fmt"
	"io"
	"sort"

	"github.com/webhydra/console/internal/model"
)

// Dashboard renders the monitoring overview page.
type Dashboard struct {
	Out io.Writer
}

// NewDashboard returns a dashboard view writing to out.
func NewDashboard(out io.Writer) *Dashboard {
	return &Dashboard{Out: out}
}

// RenderKPIs prints the four headline metrics. A nil snapshot renders
// placeholder dashes rather than zeros, so a never-loaded page is
// distinguishable from a quiet one.
func (d *Dashboard) RenderKPIs(k *model.KPISnapshot) {
	title(d.Out, "Key Metrics")
	if k == nil {
		fmt.Fprintln(d.Out, "  Total Requests    -")
		fmt.Fprintln(d.Out, "  Blocked Attacks   -")
		fmt.Fprintln(d.Out, "  False Positives   -")
		fmt.Fprintln(d.Out, "  Model Confidence  -")
		return
	}
	fmt.Fprintf(d.Out, "  Total Requests    %d\n", k.TotalRequests)
	fmt.Fprintf(d.Out, "  Blocked Attacks   %s\n", colorRed(fmt.Sprint(k.BlockedAttacks)))
	fmt.Fprintf(d.Out, "  False Positives   %s\n", colorYellow(fmt.Sprint(k.FalsePositives)))
	fmt.Fprintf(d.Out, "  Model Confidence  %s\n", colorGreen(fmt.Sprintf("%.1f%%", k.ModelConfidence*100)))
}

// RenderTraffic prints the 30-point traffic series as a line chart.
func (d *Dashboard) RenderTraffic(values []int) {
	title(d.Out, "Traffic (requests/min)")
	if len(values) == 0 {
		fmt.Fprintln(d.Out, "  no traffic data")
		return
	}
	fmt.Fprintln(d.Out, LineChart(60, 10, values))
}

// RenderOWASP prints the per-category attack distribution as a donut legend.
// Categories print in name order so repeated renders of the same counts are
// identical.
func (d *Dashboard) RenderOWASP(counts map[string]int) {
	title(d.Out, "Attacks by OWASP Category")
	if len(counts) == 0 {
		fmt.Fprintln(d.Out, "  no attack data")
		return
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]DonutValue, 0, len(names))
	for _, name := range names {
		values = append(values, DonutValue{Label: name, Value: counts[name]})
	}
	for _, seg := range DonutSegments(values) {
		fmt.Fprintf(d.Out, "  %-28s %5d  %5.1f%%\n", seg.Label, seg.Value, seg.Fraction*100)
	}
}

// RenderAlerts prints recent alerts in the order given; sorting is the
// controller's concern.
func (d *Dashboard) RenderAlerts(alerts []model.Alert) {
	title(d.Out, "Recent Alerts")
	if len(alerts) == 0 {
		fmt.Fprintln(d.Out, "  no alerts")
		return
	}
	table := newTable(d.Out, []string{"ID", "Time", "Severity", "Type", "Description"})
	for _, a := range alerts {
		table.Append([]string{
			fmt.Sprint(a.ID),
			formatStamp(a.Timestamp),
			severityColor(a.Severity)(string(a.Severity)),
			a.Type,
			a.Description,
		})
	}
	table.Render()
}

// RenderHealth prints the backend reachability line.
func (d *Dashboard) RenderHealth(report model.HealthReport) {
	fmt.Fprintf(d.Out, "\nBackends: WAF %s  TI %s\n",
		healthWord(report.WAF), healthWord(report.TI))
}

func healthWord(status model.HealthStatus) string {
	if status.Online {
		return colorGreen("online")
	}
	return colorRed("offline")
}
