package controller

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// Logs drives the request-log page and, with Syslog set, the syslog page.
// Filter and page number are controller-local view state; every filter
// change resets to page one, and the page is re-clamped after every render
// so a shrinking collection can never strand the view past the end.
type Logs struct {
	model    *model.DataModel
	view     LogsView
	out      io.Writer
	refresh  time.Duration
	pageSize int
	syslog   bool

	mu     sync.Mutex
	filter LogFilter
	page   int
	tasks  taskSet
}

// NewLogs builds the log page controller. With syslog true it drives the
// syslog collection instead of the request log.
func NewLogs(m *model.DataModel, v LogsView, out io.Writer, refresh time.Duration, pageSize int, syslog bool) *Logs {
	return &Logs{
		model:    m,
		view:     v,
		out:      out,
		refresh:  refresh,
		pageSize: pageSize,
		syslog:   syslog,
		page:     1,
	}
}

// Init loads once, renders, binds the filter and paging commands, and arms
// the refresh task.
func (c *Logs) Init(ctx context.Context, bind Binder) {
	c.load(ctx)
	c.Render()

	bind.Bind("filter", c.handleFilter)
	bind.Bind("page", c.handlePage)
	bind.Bind("refresh", func(ctx context.Context, _ []string) {
		c.load(ctx)
		c.Render()
	})

	c.tasks.add(StartTask(c.refresh, func(ctx context.Context) {
		c.load(ctx)
		c.Render()
	}))
}

func (c *Logs) load(ctx context.Context) {
	if c.syslog {
		c.model.LoadSyslogs(ctx)
		return
	}
	c.model.LoadLogs(ctx)
}

func (c *Logs) entries() []model.LogEntry {
	if c.syslog {
		return c.model.Syslogs()
	}
	return c.model.Logs()
}

func (c *Logs) heading() string {
	if c.syslog {
		return "System Logs"
	}
	return "Request Logs"
}

// handleFilter updates one filter field and resets to page one. "filter
// clear" drops every predicate.
func (c *Logs) handleFilter(_ context.Context, args []string) {
	c.mu.Lock()
	switch {
	case len(args) == 1 && args[0] == "clear":
		c.filter = LogFilter{}
	case len(args) >= 2 && args[0] == "search":
		c.filter.Search = joinArgs(args[1:])
	case len(args) == 2 && args[0] == "type":
		c.filter.Type = args[1]
	case len(args) == 2 && args[0] == "severity":
		c.filter.Severity = model.NormalizeSeverity(args[1])
	case len(args) == 2 && args[0] == "date":
		c.filter.Day = args[1]
	default:
		c.mu.Unlock()
		view.Errorf(c.out, "usage: filter search <text> | type <t> | severity <s> | date <yyyy-mm-dd> | clear")
		return
	}
	c.page = 1
	c.mu.Unlock()
	c.Render()
}

// handlePage is a pure navigation change; out-of-range requests clamp
// rather than fail.
func (c *Logs) handlePage(_ context.Context, args []string) {
	if len(args) != 1 {
		view.Errorf(c.out, "usage: page <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		view.Errorf(c.out, "usage: page <n>")
		return
	}
	c.mu.Lock()
	c.page = n
	c.mu.Unlock()
	c.Render()
}

// Render filters, clamps the page, and shows the visible window.
func (c *Logs) Render() {
	c.mu.Lock()
	filter := c.filter
	page := c.page
	c.mu.Unlock()

	filtered := FilterLogs(c.entries(), filter)
	clamped, totalPages, start, end := Paginate(len(filtered), c.pageSize, page)

	c.mu.Lock()
	c.page = clamped
	c.mu.Unlock()

	c.view.RenderFilters(filter.Search, filter.Type, filter.Severity, filter.Day)
	c.view.RenderPage(c.heading(), filtered[start:end], clamped, totalPages, len(filtered))
}

// Destroy cancels the page's tasks.
func (c *Logs) Destroy() {
	c.tasks.stopAll()
}

// joinArgs reassembles a multi-word argument.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
