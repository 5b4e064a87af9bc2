package controller

import (
	"context"
	"io"
	"sync"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// Intelligence drives the threat-intel lookup page. It is entirely
// on-demand: no refresh task, just the lookup and indicator-feed commands.
type Intelligence struct {
	gw   ThreatGateway
	view ThreatView
	out  io.Writer
}

// NewIntelligence builds the intelligence page controller.
func NewIntelligence(gw ThreatGateway, v ThreatView, out io.Writer) *Intelligence {
	return &Intelligence{gw: gw, view: v, out: out}
}

// Init binds the lookup commands and shows the usage line.
func (c *Intelligence) Init(_ context.Context, bind Binder) {
	c.Render()
	bind.Bind("lookup", c.handleLookup)
	bind.Bind("indicators", c.handleIndicators)
}

// handleLookup queries every applicable provider concurrently, then renders
// the results in a fixed order.
func (c *Intelligence) handleLookup(ctx context.Context, args []string) {
	if len(args) != 2 {
		view.Errorf(c.out, "usage: lookup ip|domain|hash <value>")
		return
	}
	indicatorType, value := args[0], args[1]
	withAbuse := indicatorType == "ip"

	var (
		vt, otx, abuse model.TIResult
		wg             sync.WaitGroup
	)
	wg.Add(2)
	go func() { defer wg.Done(); vt = c.gw.LookupVirusTotal(ctx, indicatorType, value) }()
	go func() { defer wg.Done(); otx = c.gw.LookupOTX(ctx, indicatorType, value) }()
	if withAbuse {
		wg.Add(1)
		go func() { defer wg.Done(); abuse = c.gw.LookupAbuseIPDB(ctx, value) }()
	}
	wg.Wait()

	c.view.RenderTIResult(vt)
	c.view.RenderTIResult(otx)
	if withAbuse {
		c.view.RenderTIResult(abuse)
	}
}

func (c *Intelligence) handleIndicators(ctx context.Context, args []string) {
	if len(args) != 1 || (args[0] != "abuseipdb" && args[0] != "otx") {
		view.Errorf(c.out, "usage: indicators abuseipdb|otx")
		return
	}
	if args[0] == "abuseipdb" {
		c.view.RenderFeedIndicators("AbuseIPDB", c.gw.FetchAbuseIPDBFeed(ctx))
		return
	}
	c.view.RenderFeedIndicators("OTX", c.gw.FetchOTXFeed(ctx))
}

// Render prints the page's usage hint.
func (c *Intelligence) Render() {
	view.Statusf(c.out, "Threat Intelligence: lookup ip|domain|hash <value>, indicators abuseipdb|otx")
}

// Destroy is a no-op; the page arms no tasks.
func (c *Intelligence) Destroy() {}
