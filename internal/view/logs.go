package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

// Logs renders the request-log and syslog pages.
type Logs struct {
	Out io.Writer
}

// NewLogs returns a logs view writing to out.
func NewLogs(out io.Writer) *Logs {
	return &Logs{Out: out}
}

// RenderPage prints one page of log entries followed by the pagination
// footer. entries is the already filtered, sorted, clamped page slice; page
// and totalPages reflect the controller's view state, total the filtered
// collection size.
func (v *Logs) RenderPage(heading string, entries []model.LogEntry, page, totalPages, total int) {
	title(v.Out, heading)
	if total == 0 {
		fmt.Fprintln(v.Out, "  no matching entries")
		fmt.Fprintf(v.Out, "Page 1 of 1 (0 entries)\n")
		return
	}
	table := newTable(v.Out, []string{"ID", "Time", "Severity", "Type", "Message"})
	for _, e := range entries {
		table.Append([]string{
			fmt.Sprint(e.ID),
			formatStamp(e.Timestamp),
			severityColor(e.Severity)(string(e.Severity)),
			e.Type,
			e.Message,
		})
	}
	table.Render()
	fmt.Fprintf(v.Out, "Page %d of %d (%d entries)\n", page, totalPages, total)
}

// RenderFilters prints the active filter set so the operator can see what
// the page is constrained by.
func (v *Logs) RenderFilters(search, logType string, severity model.Severity, day string) {
	active := false
	line := "Filters:"
	if search != "" {
		line += fmt.Sprintf(" search=%q", search)
		active = true
	}
	if logType != "" {
		line += " type=" + logType
		active = true
	}
	if severity != "" {
		line += " severity=" + string(severity)
		active = true
	}
	if day != "" {
		line += " date=" + day
		active = true
	}
	if !active {
		line += " none"
	}
	fmt.Fprintln(v.Out, colorCyan(line))
}
