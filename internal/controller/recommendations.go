package controller

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

const (
	// analysisFetchLimit is how many recent log entries one live-analysis
	// tick pulls from the backend.
	analysisFetchLimit = 20
	// analysisBatchLimit is how many of those entries get analyzed.
	analysisBatchLimit = 5
)

// PatchGateway feeds the live-analysis loop and generates attack analyses
// from free-text descriptions.
type PatchGateway interface {
	FetchLogs(ctx context.Context, limit, offset int) []model.LogEntry
	GenerateRecommendation(ctx context.Context, description string, extra map[string]any) model.PatchRecommendation
}

// Recommendations drives the recommendation page: the card list, the apply
// command, on-demand generated analyses, and a periodic live-analysis pass
// that runs fresh log entries through the patch backend.
type Recommendations struct {
	model   *model.DataModel
	gw      PatchGateway
	view    RecommendationsView
	out     io.Writer
	refresh time.Duration
	rec     Recorder

	mu       sync.Mutex
	analyzed map[int]struct{}
	tasks    taskSet
}

// NewRecommendations builds the recommendations page controller.
func NewRecommendations(m *model.DataModel, gw PatchGateway, v RecommendationsView, out io.Writer, refresh time.Duration, rec Recorder) *Recommendations {
	return &Recommendations{
		model:    m,
		gw:       gw,
		view:     v,
		out:      out,
		refresh:  refresh,
		rec:      rec,
		analyzed: make(map[int]struct{}),
	}
}

// Init renders the seed cards, binds the page commands, and arms the
// live-analysis task.
func (c *Recommendations) Init(ctx context.Context, bind Binder) {
	c.Render()

	bind.Bind("rec", c.handleRec)

	c.tasks.add(StartTask(c.refresh, func(ctx context.Context) {
		c.analyze(ctx)
		c.Render()
	}))
}

// analyze pulls recent log entries, takes the newest analysisBatchLimit of
// them, and asks the patch backend for an analysis of each entry it has not
// seen before. Each analysis renders as it arrives; a failed one renders as
// an error card for that entry.
func (c *Recommendations) analyze(ctx context.Context) {
	logs := c.gw.FetchLogs(ctx, analysisFetchLimit, 0)
	if len(logs) > analysisBatchLimit {
		logs = logs[:analysisBatchLimit]
	}
	for _, entry := range logs {
		c.mu.Lock()
		_, done := c.analyzed[entry.ID]
		if !done {
			c.analyzed[entry.ID] = struct{}{}
		}
		c.mu.Unlock()
		if done {
			continue
		}

		description := entry.Message
		if description == "" {
			description = "Suspicious activity detected"
		}
		result := c.gw.GenerateRecommendation(ctx, description, map[string]any{
			"source": "live_feed",
			"log_id": entry.ID,
		})
		c.view.RenderPatch(result)
	}
}

// handleRec dispatches the apply and analyze subcommands.
func (c *Recommendations) handleRec(ctx context.Context, args []string) {
	if len(args) == 0 {
		view.Errorf(c.out, "usage: rec apply <id> | rec analyze <description>")
		return
	}
	switch args[0] {
	case "apply":
		c.apply(args[1:])
	case "analyze":
		c.generate(ctx, args[1:])
	default:
		view.Errorf(c.out, "usage: rec apply <id> | rec analyze <description>")
	}
}

// apply marks a card applied and reports the rule it synthesized. Applying
// an already-applied card is a no-op.
func (c *Recommendations) apply(args []string) {
	id, ok := parseID(args)
	if !ok {
		view.Errorf(c.out, "usage: rec apply <id>")
		return
	}
	rule, applied := c.model.ApplyRecommendation(id)
	if !applied {
		view.Statusf(c.out, "recommendation %d is already applied or unknown", id)
		return
	}
	view.Successf(c.out, "applied: created rule %d (%s)", rule.ID, rule.Name)
	c.rec.note("applied recommendation %d as rule %d", id, rule.ID)
	c.Render()
}

// generate asks the patch backend for an analysis of a described attack.
func (c *Recommendations) generate(ctx context.Context, args []string) {
	description := joinArgs(args)
	if description == "" {
		view.Errorf(c.out, "usage: rec analyze <description>")
		return
	}
	c.view.RenderPatch(c.gw.GenerateRecommendation(ctx, description, nil))
}

// Render shows the current cards.
func (c *Recommendations) Render() {
	c.view.RenderRecommendations(c.model.Recommendations())
}

// Destroy cancels the page's tasks.
func (c *Recommendations) Destroy() {
	c.tasks.stopAll()
}
