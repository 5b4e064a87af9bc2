package controller

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// seenIDCap bounds the set of alert ids already shown in the feed; the
// oldest id is evicted once the cap is reached.
const seenIDCap = 20

// feedLineCap bounds the on-screen feed; the oldest line is evicted once
// the cap is reached.
const feedLineCap = 10

// feedBatchLimit is how many recent alerts one feed tick asks for.
const feedBatchLimit = 5

// livenessChance is the per-tick probability of a synthetic "still
// monitoring" line when no alerts arrived.
const livenessChance = 0.10

// errorLineChance is the per-tick probability of surfacing a muted fetch
// status line when no alerts arrived.
const errorLineChance = 0.05

// ThreatGateway is the remote surface the threat page consumes.
type ThreatGateway interface {
	FetchAlerts(ctx context.Context, limit int) []model.Alert
	LookupVirusTotal(ctx context.Context, indicatorType, value string) model.TIResult
	LookupOTX(ctx context.Context, indicatorType, value string) model.TIResult
	LookupAbuseIPDB(ctx context.Context, value string) model.TIResult
	FetchAbuseIPDBFeed(ctx context.Context) []model.FeedIndicator
	FetchOTXFeed(ctx context.Context) []model.FeedIndicator
}

// Threat drives the threat-analysis page: the heatmap refresh, the live
// anomaly feed, and on-demand TI lookups. The feed is its own two-state
// machine, running ⇄ paused: pausing stops its task, resuming always arms a
// fresh one.
type Threat struct {
	model    *model.DataModel
	gw       ThreatGateway
	view     ThreatView
	out      io.Writer
	refresh  time.Duration
	interval time.Duration

	// randFn is the probability source for synthetic feed lines,
	// replaceable in tests.
	randFn func() float64

	// intel serves the lookup commands; the threat page carries the same
	// TI surface as the intelligence page.
	intel *Intelligence

	mu        sync.Mutex
	running   bool
	feedTask  *Task
	feedLines []string
	seenIDs   []int
	seenSet   map[int]struct{}
	tasks     taskSet
}

// NewThreat builds the threat page controller.
func NewThreat(m *model.DataModel, gw ThreatGateway, v ThreatView, out io.Writer, refresh, feedInterval time.Duration) *Threat {
	return &Threat{
		model:    m,
		gw:       gw,
		view:     v,
		out:      out,
		refresh:  refresh,
		interval: feedInterval,
		randFn:   rand.Float64,
		seenSet:  make(map[int]struct{}),
		intel:    NewIntelligence(gw, v, out),
	}
}

// Init loads once, renders, binds the page commands, arms the heatmap
// refresh, and starts the anomaly feed running.
func (c *Threat) Init(ctx context.Context, bind Binder) {
	c.model.LoadDashboard(ctx)
	c.Render()

	bind.Bind("feed", c.handleFeed)
	bind.Bind("lookup", c.intel.handleLookup)
	bind.Bind("indicators", c.intel.handleIndicators)

	c.tasks.add(StartTask(c.refresh, func(ctx context.Context) {
		c.model.LoadDashboard(ctx)
		c.Render()
	}))
	c.resumeFeed()
}

// handleFeed toggles the anomaly feed between running and paused.
func (c *Threat) handleFeed(_ context.Context, args []string) {
	if len(args) != 1 || (args[0] != "pause" && args[0] != "resume") {
		view.Errorf(c.out, "usage: feed pause|resume")
		return
	}
	if args[0] == "pause" {
		c.pauseFeed()
	} else {
		c.resumeFeed()
	}
	c.Render()
}

// pauseFeed stops the feed task. Safe when already paused.
func (c *Threat) pauseFeed() {
	c.mu.Lock()
	task := c.feedTask
	c.feedTask = nil
	c.running = false
	c.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// resumeFeed arms a fresh feed task. Safe when already running.
func (c *Threat) resumeFeed() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	task := StartTask(c.interval, c.feedTick)
	c.feedTask = task
	c.mu.Unlock()
}

// feedTick fetches a small alert batch, appends at most one unseen alert to
// the feed, and otherwise has a small chance of emitting a synthetic status
// line so a quiet feed still shows liveness.
func (c *Threat) feedTick(ctx context.Context) {
	alerts := c.gw.FetchAlerts(ctx, feedBatchLimit)

	c.mu.Lock()
	appended := false
	for _, a := range alerts {
		if _, seen := c.seenSet[a.ID]; seen {
			continue
		}
		c.markSeenLocked(a.ID)
		c.appendLineLocked(fmt.Sprintf("[%s] %s anomaly: %s",
			time.Now().Format("15:04:05"), a.Severity, a.Description))
		appended = true
		break
	}
	if !appended {
		switch roll := c.randFn(); {
		case roll < errorLineChance:
			c.appendLineLocked(fmt.Sprintf("[%s] feed: fetch returned no data",
				time.Now().Format("15:04:05")))
		case roll < errorLineChance+livenessChance:
			c.appendLineLocked(fmt.Sprintf("[%s] monitoring... no anomalies detected",
				time.Now().Format("15:04:05")))
		}
	}
	c.mu.Unlock()
	c.Render()
}

// markSeenLocked records an alert id, evicting the oldest past the cap.
func (c *Threat) markSeenLocked(id int) {
	c.seenIDs = append(c.seenIDs, id)
	c.seenSet[id] = struct{}{}
	if len(c.seenIDs) > seenIDCap {
		oldest := c.seenIDs[0]
		c.seenIDs = c.seenIDs[1:]
		delete(c.seenSet, oldest)
	}
}

// appendLineLocked appends a feed line, evicting the oldest past the cap.
func (c *Threat) appendLineLocked(line string) {
	c.feedLines = append(c.feedLines, line)
	if len(c.feedLines) > feedLineCap {
		c.feedLines = c.feedLines[1:]
	}
}

// Render shows the heatmap and the current feed window.
func (c *Threat) Render() {
	c.mu.Lock()
	lines := make([]string, len(c.feedLines))
	copy(lines, c.feedLines)
	running := c.running
	c.mu.Unlock()

	c.view.RenderHeatmap(c.model.Heatmap())
	c.view.RenderFeed(lines, running)
}

// Destroy pauses the feed and cancels the page's tasks.
func (c *Threat) Destroy() {
	c.pauseFeed()
	c.tasks.stopAll()
}
