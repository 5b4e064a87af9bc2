package controller

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// HealthChecker probes backend reachability for the dashboard status line.
type HealthChecker interface {
	CheckAllHealth(ctx context.Context) model.HealthReport
}

// Dashboard drives the monitoring overview page: one initial load, a
// periodic refresh, a health probe on its own cadence, and the alert sort
// commands.
type Dashboard struct {
	model   *model.DataModel
	health  HealthChecker
	view    DashboardView
	out     io.Writer
	refresh time.Duration
	probe   time.Duration

	mu      sync.Mutex
	sortKey string
	report  model.HealthReport
	tasks   taskSet
}

// NewDashboard builds the dashboard controller.
func NewDashboard(m *model.DataModel, health HealthChecker, v DashboardView, out io.Writer, refresh, probe time.Duration) *Dashboard {
	return &Dashboard{
		model:   m,
		health:  health,
		view:    v,
		out:     out,
		refresh: refresh,
		probe:   probe,
	}
}

// Init loads once, renders, binds the page commands, and arms the refresh
// and health tasks.
func (c *Dashboard) Init(ctx context.Context, bind Binder) {
	c.model.LoadDashboard(ctx)
	c.checkHealth(ctx)
	c.Render()

	bind.Bind("sort", c.handleSort)
	bind.Bind("refresh", func(ctx context.Context, _ []string) {
		c.model.LoadDashboard(ctx)
		c.Render()
	})

	c.tasks.add(StartTask(c.refresh, func(ctx context.Context) {
		c.model.LoadDashboard(ctx)
		c.Render()
	}))
	c.tasks.add(StartTask(c.probe, func(ctx context.Context) {
		c.checkHealth(ctx)
	}))
}

// handleSort is a pure view-state change: it updates the sort key and
// re-renders without touching the model.
func (c *Dashboard) handleSort(_ context.Context, args []string) {
	if len(args) != 1 || (args[0] != SortByType && args[0] != SortBySeverity && args[0] != "none") {
		view.Errorf(c.out, "usage: sort type|severity|none")
		return
	}
	c.mu.Lock()
	if args[0] == "none" {
		c.sortKey = ""
	} else {
		c.sortKey = args[0]
	}
	c.mu.Unlock()
	c.Render()
}

func (c *Dashboard) checkHealth(ctx context.Context) {
	report := c.health.CheckAllHealth(ctx)
	c.mu.Lock()
	c.report = report
	c.mu.Unlock()
}

// Render re-derives the visible page from the model snapshot plus the sort
// key.
func (c *Dashboard) Render() {
	c.mu.Lock()
	sortKey := c.sortKey
	report := c.report
	c.mu.Unlock()

	var kpis *model.KPISnapshot
	if c.model.HasKPIs() {
		k := c.model.KPIs()
		kpis = &k
	}
	c.view.RenderKPIs(kpis)
	c.view.RenderTraffic(c.model.Traffic())
	c.view.RenderOWASP(c.model.OWASPCounts())
	c.view.RenderAlerts(SortAlerts(c.model.Alerts(), sortKey))
	c.view.RenderHealth(report)
}

// Destroy cancels the page's tasks.
func (c *Dashboard) Destroy() {
	c.tasks.stopAll()
}
