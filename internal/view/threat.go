package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

var heatmapDays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Threat renders the threat-analysis page: the day×hour heatmap, the live
// anomaly feed, and threat-intel lookup results.
type Threat struct {
	Out io.Writer
}

// NewThreat returns a threat view writing to out.
func NewThreat(out io.Writer) *Threat {
	return &Threat{Out: out}
}

// RenderHeatmap prints the 7×24 intensity grid, one row per day, shaded
// relative to the grid maximum.
func (v *Threat) RenderHeatmap(grid [][]float64) {
	title(v.Out, "Attack Intensity (day × hour)")
	if len(grid) == 0 {
		fmt.Fprintln(v.Out, "  no heatmap data")
		return
	}

	max := 0.0
	for _, row := range grid {
		for _, cell := range row {
			if cell > max {
				max = cell
			}
		}
	}

	fmt.Fprintln(v.Out, "      0         6         12        18        23")
	for i, row := range grid {
		day := fmt.Sprintf("%d", i)
		if i < len(heatmapDays) {
			day = heatmapDays[i]
		}
		cells := make([]rune, len(row))
		for h, cell := range row {
			cells[h] = HeatRune(cell, max)
		}
		fmt.Fprintf(v.Out, "  %-4s%s\n", day, string(cells))
	}
}

// RenderFeed prints the live anomaly feed, newest line last, and the feed's
// run state.
func (v *Threat) RenderFeed(lines []string, running bool) {
	state := colorYellow("paused")
	if running {
		state = colorGreen("running")
	}
	title(v.Out, fmt.Sprintf("Live Anomaly Feed [%s]", state))
	if len(lines) == 0 {
		fmt.Fprintln(v.Out, "  feed is empty")
		return
	}
	for _, line := range lines {
		fmt.Fprintf(v.Out, "  %s\n", line)
	}
}

// RenderTIResult prints one provider lookup outcome, inline error included.
func (v *Threat) RenderTIResult(result model.TIResult) {
	if result.Error != "" {
		fmt.Fprintf(v.Out, "  %-12s %s\n", result.Provider, colorRed(result.Error))
		return
	}
	fmt.Fprintf(v.Out, "  %-12s risk=%s  %s\n",
		result.Provider,
		severityColor(model.NormalizeSeverity(result.Risk))(result.Risk),
		result.Summary,
	)
}

// RenderFeedIndicators prints a provider's recent-indicator list.
func (v *Threat) RenderFeedIndicators(provider string, indicators []model.FeedIndicator) {
	title(v.Out, fmt.Sprintf("Recent Indicators (%s)", provider))
	if len(indicators) == 0 {
		fmt.Fprintln(v.Out, "  feed unavailable")
		return
	}
	table := newTable(v.Out, []string{"Indicator", "Type", "Source"})
	for _, ind := range indicators {
		table.Append([]string{ind.Indicator, ind.Type, ind.Source})
	}
	table.Render()
}
