// Package view renders console pages to an io.Writer. Renderers are
// stateless with respect to domain data: every RenderX method is a pure
// function of its arguments and rewrites its whole region, so rendering the
// same snapshot twice produces identical output. Views never fetch or mutate
// domain state; controllers hand them ready-to-display snapshots.
package view

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/webhydra/console/internal/model"
)

var (
	colorRed     = color.New(color.FgRed).SprintFunc()
	colorYellow  = color.New(color.FgYellow).SprintFunc()
	colorBlue    = color.New(color.FgBlue).SprintFunc()
	colorMagenta = color.New(color.FgMagenta).SprintFunc()
	colorCyan    = color.New(color.FgCyan).SprintFunc()
	colorGreen   = color.New(color.FgGreen).SprintFunc()
	colorWhite   = color.New(color.FgWhite).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

// severityColor returns the color function for a canonical severity.
func severityColor(sev model.Severity) func(a ...interface{}) string {
	switch sev {
	case model.SeverityCritical:
		return colorRed
	case model.SeverityHigh:
		return colorMagenta
	case model.SeverityMedium:
		return colorYellow
	case model.SeverityLow:
		return colorBlue
	default:
		return colorWhite
	}
}

// formatStamp renders a Unix-millisecond timestamp in the local time zone.
func formatStamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

// newTable builds a table with the console's shared settings.
func newTable(out io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	return table
}

// title prints a section heading.
func title(out io.Writer, text string) {
	fmt.Fprintf(out, "\n%s\n", colorBold(text))
}

// Statusf prints a muted one-line status message, the only surface for
// background-failure feedback.
func Statusf(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, colorCyan(fmt.Sprintf(format, args...)))
}

// Errorf prints an inline error message for a user-initiated action.
func Errorf(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, colorRed(fmt.Sprintf(format, args...)))
}

// Successf prints an inline success message for a user-initiated action.
func Successf(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, colorGreen(fmt.Sprintf(format, args...)))
}

// onOff renders an enabled flag.
func onOff(enabled bool) string {
	if enabled {
		return colorGreen("enabled")
	}
	return colorYellow("disabled")
}
