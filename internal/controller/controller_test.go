package controller

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webhydra/console/internal/model"
)

// hour keeps refresh tasks from firing during a test.
const hour = time.Hour

// fakeBinder records command handlers for direct invocation.
type fakeBinder struct {
	handlers map[string]func(ctx context.Context, args []string)
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{handlers: make(map[string]func(ctx context.Context, args []string))}
}

func (b *fakeBinder) Bind(command string, fn func(ctx context.Context, args []string)) {
	b.handlers[command] = fn
}

func (b *fakeBinder) dispatch(t *testing.T, command string, args ...string) {
	t.Helper()
	fn, ok := b.handlers[command]
	if !ok {
		t.Fatalf("no handler bound for %q", command)
	}
	fn(context.Background(), args)
}

// stubGateway is a settable model.Gateway.
type stubGateway struct {
	alerts []model.Alert
	logs   []model.LogEntry
}

func (g *stubGateway) FetchKPIs(context.Context) *model.KPISnapshot { return nil }
func (g *stubGateway) FetchAlerts(_ context.Context, limit int) []model.Alert {
	if limit < len(g.alerts) {
		return g.alerts[:limit]
	}
	return g.alerts
}
func (g *stubGateway) FetchTraffic(context.Context) []int            { return nil }
func (g *stubGateway) FetchOWASP(context.Context) map[string]int     { return nil }
func (g *stubGateway) FetchHeatmap(context.Context) [][]float64      { return nil }
func (g *stubGateway) FetchLogs(context.Context, int, int) []model.LogEntry {
	return g.logs
}
func (g *stubGateway) FetchSyslogs(context.Context, int, int) []model.LogEntry { return nil }
func (g *stubGateway) FetchRules(context.Context) []model.Rule                 { return nil }

func (g *stubGateway) LookupVirusTotal(context.Context, string, string) model.TIResult {
	return model.TIResult{Provider: "virustotal"}
}
func (g *stubGateway) LookupOTX(context.Context, string, string) model.TIResult {
	return model.TIResult{Provider: "otx"}
}
func (g *stubGateway) LookupAbuseIPDB(context.Context, string) model.TIResult {
	return model.TIResult{Provider: "abuseipdb"}
}
func (g *stubGateway) FetchAbuseIPDBFeed(context.Context) []model.FeedIndicator { return nil }
func (g *stubGateway) FetchOTXFeed(context.Context) []model.FeedIndicator       { return nil }

// recordingLogsView captures the last RenderPage call.
type recordingLogsView struct {
	mu         sync.Mutex
	entries    []model.LogEntry
	page       int
	totalPages int
	total      int
}

func (v *recordingLogsView) RenderFilters(string, string, model.Severity, string) {}
func (v *recordingLogsView) RenderPage(_ string, entries []model.LogEntry, page, totalPages, total int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append([]model.LogEntry(nil), entries...)
	v.page = page
	v.totalPages = totalPages
	v.total = total
}

// recordingDashView captures the last alert order.
type recordingDashView struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (v *recordingDashView) RenderKPIs(*model.KPISnapshot)      {}
func (v *recordingDashView) RenderTraffic([]int)                {}
func (v *recordingDashView) RenderOWASP(map[string]int)         {}
func (v *recordingDashView) RenderHealth(model.HealthReport)    {}
func (v *recordingDashView) RenderAlerts(alerts []model.Alert) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append([]model.Alert(nil), alerts...)
}

type stubHealth struct{}

func (stubHealth) CheckAllHealth(context.Context) model.HealthReport { return model.HealthReport{} }

// recordingThreatView captures the feed window and rendered TI results.
type recordingThreatView struct {
	mu      sync.Mutex
	lines   []string
	running bool
	results []model.TIResult
}

func (v *recordingThreatView) RenderHeatmap([][]float64)                        {}
func (v *recordingThreatView) RenderTIResult(result model.TIResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = append(v.results, result)
}

func (v *recordingThreatView) tiResults() []model.TIResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.TIResult(nil), v.results...)
}
func (v *recordingThreatView) RenderFeedIndicators(string, []model.FeedIndicator) {}
func (v *recordingThreatView) RenderFeed(lines []string, running bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append([]string(nil), lines...)
	v.running = running
}

func (v *recordingThreatView) snapshot() ([]string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...), v.running
}

// recordingLearningView captures the last training render.
type recordingLearningView struct {
	mu         sync.Mutex
	state      model.TrainingState
	confidence float64
}

func (v *recordingLearningView) RenderTraining(state model.TrainingState, confidence float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	v.confidence = confidence
}

// stubPatchGateway serves canned logs and records analysis requests.
type stubPatchGateway struct {
	mu           sync.Mutex
	logs         []model.LogEntry
	fail         bool
	descriptions []string
}

func (g *stubPatchGateway) FetchLogs(_ context.Context, limit, _ int) []model.LogEntry {
	if len(g.logs) > limit {
		return g.logs[:limit]
	}
	return g.logs
}

func (g *stubPatchGateway) GenerateRecommendation(_ context.Context, description string, _ map[string]any) model.PatchRecommendation {
	g.mu.Lock()
	g.descriptions = append(g.descriptions, description)
	g.mu.Unlock()
	if g.fail {
		return model.PatchRecommendation{Error: "Network Error - refused"}
	}
	return model.PatchRecommendation{AttackType: "SQL Injection", RiskLevel: "Critical"}
}

func (g *stubPatchGateway) requested() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.descriptions...)
}

// recordingRecView captures every generated analysis render.
type recordingRecView struct {
	mu      sync.Mutex
	patches []model.PatchRecommendation
}

func (v *recordingRecView) RenderRecommendations([]model.Recommendation) {}
func (v *recordingRecView) RenderPatch(rec model.PatchRecommendation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.patches = append(v.patches, rec)
}

func (v *recordingRecView) rendered() []model.PatchRecommendation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.PatchRecommendation(nil), v.patches...)
}

// ── tasks ────────────────────────────────────────────────────────────────────

func TestTaskStopsCleanly(t *testing.T) {
	var ticks atomic.Int64
	task := StartTask(5*time.Millisecond, func(context.Context) { ticks.Add(1) })

	time.Sleep(40 * time.Millisecond)
	task.Stop()
	if ticks.Load() == 0 {
		t.Fatal("task never ticked")
	}

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("task ticked after Stop returned")
	}
}

func TestTaskStopIsIdempotent(t *testing.T) {
	task := StartTask(time.Hour, func(context.Context) {})
	task.Stop()
	task.Stop()
}

// ── dashboard ────────────────────────────────────────────────────────────────

func TestDashboardSortScenario(t *testing.T) {
	gw := &stubGateway{alerts: []model.Alert{
		{ID: 1, Severity: model.SeverityLow},
		{ID: 2, Severity: model.SeverityCritical},
	}}
	m := model.NewDataModel(gw, nil)
	v := &recordingDashView{}
	c := NewDashboard(m, stubHealth{}, v, io.Discard, hour, hour)
	defer c.Destroy()

	binder := newFakeBinder()
	c.Init(context.Background(), binder)

	if got := ids(v.alerts); got[0] != 1 || got[1] != 2 {
		t.Fatalf("pre-sort order wrong: %v", got)
	}

	binder.dispatch(t, "sort", "severity")
	if got := ids(v.alerts); got[0] != 2 || got[1] != 1 {
		t.Errorf("expected order [2 1] after severity sort, got %v", got)
	}

	binder.dispatch(t, "sort", "none")
	if got := ids(v.alerts); got[0] != 1 || got[1] != 2 {
		t.Errorf("expected canonical order restored, got %v", got)
	}
}

// ── logs (scenario B) ────────────────────────────────────────────────────────

func TestLogsPaginationAndFilterReset(t *testing.T) {
	entries := make([]model.LogEntry, 25)
	for i := range entries {
		msg := fmt.Sprintf("request %d", i+1)
		if i < 3 {
			msg = fmt.Sprintf("suspicious request %d", i+1)
		}
		entries[i] = model.LogEntry{ID: i + 1, Type: "request", Severity: model.SeverityLow, Message: msg}
	}
	gw := &stubGateway{logs: entries}
	m := model.NewDataModel(gw, nil)
	v := &recordingLogsView{}
	c := NewLogs(m, v, io.Discard, hour, 10, false)
	defer c.Destroy()

	binder := newFakeBinder()
	c.Init(context.Background(), binder)

	if v.page != 1 || v.totalPages != 3 || len(v.entries) != 10 {
		t.Fatalf("initial page wrong: page=%d pages=%d len=%d", v.page, v.totalPages, len(v.entries))
	}
	if v.entries[0].ID != 1 || v.entries[9].ID != 10 {
		t.Errorf("page 1 must show entries 1-10, got %d..%d", v.entries[0].ID, v.entries[9].ID)
	}

	binder.dispatch(t, "page", "2")
	if v.page != 2 || v.entries[0].ID != 11 {
		t.Errorf("page 2 wrong: page=%d first=%d", v.page, v.entries[0].ID)
	}

	binder.dispatch(t, "page", "99")
	if v.page != 3 {
		t.Errorf("past-last page must clamp to 3, got %d", v.page)
	}

	binder.dispatch(t, "filter", "search", "suspicious")
	if v.page != 1 || v.totalPages != 1 || v.total != 3 {
		t.Errorf("filter must reset to page 1 of 1 with 3 entries: page=%d pages=%d total=%d",
			v.page, v.totalPages, v.total)
	}

	binder.dispatch(t, "filter", "clear")
	if v.totalPages != 3 || v.total != 25 {
		t.Errorf("cleared filter must restore the full collection: pages=%d total=%d", v.totalPages, v.total)
	}
}

// ── intelligence ─────────────────────────────────────────────────────────────

// barrierGateway blocks each lookup until all three have started, so the
// test deadlocks unless the lookups run concurrently.
type barrierGateway struct {
	stubGateway
	started chan struct{}
	release chan struct{}
}

func (g *barrierGateway) await(provider string) model.TIResult {
	g.started <- struct{}{}
	<-g.release
	return model.TIResult{Provider: provider}
}

func (g *barrierGateway) LookupVirusTotal(context.Context, string, string) model.TIResult {
	return g.await("virustotal")
}
func (g *barrierGateway) LookupOTX(context.Context, string, string) model.TIResult {
	return g.await("otx")
}
func (g *barrierGateway) LookupAbuseIPDB(context.Context, string) model.TIResult {
	return g.await("abuseipdb")
}

func TestLookupQueriesProvidersConcurrently(t *testing.T) {
	gw := &barrierGateway{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	v := &recordingThreatView{}
	c := NewIntelligence(gw, v, io.Discard)
	defer c.Destroy()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.handleLookup(context.Background(), []string{"ip", "203.0.113.9"})
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-gw.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 3 provider lookups started; they are not concurrent", i)
		}
	}
	close(gw.release)
	<-done

	if got := v.tiResults(); len(got) != 3 {
		t.Fatalf("expected 3 rendered results, got %d", len(got))
	} else if got[0].Provider != "virustotal" || got[1].Provider != "otx" || got[2].Provider != "abuseipdb" {
		t.Errorf("results out of fixed provider order: %+v", got)
	}
}

// ── recommendations ──────────────────────────────────────────────────────────

func TestLiveAnalysisGeneratesPerUnseenLog(t *testing.T) {
	var entries []model.LogEntry
	for i := 1; i <= 8; i++ {
		entries = append(entries, model.LogEntry{ID: i, Message: fmt.Sprintf("suspicious request %d", i)})
	}
	gw := &stubPatchGateway{logs: entries}
	m := model.NewDataModel(&stubGateway{}, nil)
	v := &recordingRecView{}
	c := NewRecommendations(m, gw, v, io.Discard, hour, nil)
	defer c.Destroy()

	c.analyze(context.Background())

	requested := gw.requested()
	if len(requested) != analysisBatchLimit {
		t.Fatalf("expected the top %d entries analyzed, got %d", analysisBatchLimit, len(requested))
	}
	if requested[0] != "suspicious request 1" {
		t.Errorf("analysis description should be the log message, got %q", requested[0])
	}
	if got := v.rendered(); len(got) != analysisBatchLimit {
		t.Fatalf("expected %d rendered analyses, got %d", analysisBatchLimit, len(got))
	}

	// A second pass sees the same entries and analyzes nothing new.
	c.analyze(context.Background())
	if got := gw.requested(); len(got) != analysisBatchLimit {
		t.Errorf("already-analyzed entries were re-requested: %d calls", len(got))
	}
}

func TestLiveAnalysisBlankMessageGetsFallbackDescription(t *testing.T) {
	gw := &stubPatchGateway{logs: []model.LogEntry{{ID: 1}}}
	m := model.NewDataModel(&stubGateway{}, nil)
	v := &recordingRecView{}
	c := NewRecommendations(m, gw, v, io.Discard, hour, nil)
	defer c.Destroy()

	c.analyze(context.Background())

	requested := gw.requested()
	if len(requested) != 1 || requested[0] != "Suspicious activity detected" {
		t.Fatalf("expected fallback description, got %v", requested)
	}
}

func TestLiveAnalysisRendersPerEntryFailure(t *testing.T) {
	gw := &stubPatchGateway{logs: []model.LogEntry{{ID: 1, Message: "odd payload"}}, fail: true}
	m := model.NewDataModel(&stubGateway{}, nil)
	v := &recordingRecView{}
	c := NewRecommendations(m, gw, v, io.Discard, hour, nil)
	defer c.Destroy()

	c.analyze(context.Background())

	got := v.rendered()
	if len(got) != 1 || got[0].Error == "" {
		t.Fatalf("expected one rendered failure, got %+v", got)
	}
}

// ── threat feed ──────────────────────────────────────────────────────────────

func TestFeedDeduplicatesAlerts(t *testing.T) {
	gw := &stubGateway{alerts: []model.Alert{
		{ID: 1, Severity: model.SeverityHigh, Description: "probe"},
		{ID: 2, Severity: model.SeverityCritical, Description: "injection"},
	}}
	m := model.NewDataModel(gw, nil)
	v := &recordingThreatView{}
	c := NewThreat(m, gw, v, io.Discard, hour, hour)
	c.randFn = func() float64 { return 0.99 } // never emit synthetic lines

	c.feedTick(context.Background())
	c.feedTick(context.Background())
	c.feedTick(context.Background())

	lines, _ := v.snapshot()
	if len(lines) != 2 {
		t.Fatalf("expected one line per distinct alert, got %d: %v", len(lines), lines)
	}
}

func TestFeedTickInspectsFiveAlerts(t *testing.T) {
	gw := &stubGateway{}
	for i := 1; i <= 7; i++ {
		gw.alerts = append(gw.alerts, model.Alert{ID: i, Severity: model.SeverityLow, Description: fmt.Sprintf("event %d", i)})
	}
	m := model.NewDataModel(gw, nil)
	v := &recordingThreatView{}
	c := NewThreat(m, gw, v, io.Discard, hour, hour)
	c.randFn = func() float64 { return 0.99 }

	c.feedTick(context.Background())

	lines, _ := v.snapshot()
	if len(lines) != 5 {
		t.Fatalf("a tick should surface the 5 most recent alerts, got %d: %v", len(lines), lines)
	}
}

func TestFeedLineCapEvictsOldest(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingThreatView{}
	c := NewThreat(m, gw, v, io.Discard, hour, hour)

	for i := 1; i <= feedLineCap+5; i++ {
		gw.alerts = []model.Alert{{ID: i, Severity: model.SeverityLow, Description: fmt.Sprintf("event %d", i)}}
		c.feedTick(context.Background())
	}

	lines, _ := v.snapshot()
	if len(lines) != feedLineCap {
		t.Fatalf("expected feed capped at %d lines, got %d", feedLineCap, len(lines))
	}
	// The oldest lines were evicted; the newest survives.
	last := lines[len(lines)-1]
	if want := fmt.Sprintf("event %d", feedLineCap+5); !strings.Contains(last, want) {
		t.Errorf("newest line missing, got %q", last)
	}
}

func TestFeedSeenSetCapAllowsReappearance(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingThreatView{}
	c := NewThreat(m, gw, v, io.Discard, hour, hour)
	c.randFn = func() float64 { return 0.99 }

	// Fill the seen set past its cap so id 1 gets evicted.
	for i := 1; i <= seenIDCap+1; i++ {
		gw.alerts = []model.Alert{{ID: i, Severity: model.SeverityLow, Description: "x"}}
		c.feedTick(context.Background())
	}
	linesBefore, _ := v.snapshot()

	gw.alerts = []model.Alert{{ID: 1, Severity: model.SeverityLow, Description: "x"}}
	c.feedTick(context.Background())
	linesAfter, _ := v.snapshot()

	if len(linesAfter) == len(linesBefore) {
		t.Error("an evicted id must be reportable again")
	}
}

func TestFeedPauseResumeStateMachine(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingThreatView{}
	c := NewThreat(m, gw, v, io.Discard, hour, hour)
	defer c.Destroy()

	binder := newFakeBinder()
	c.Init(context.Background(), binder)
	if _, running := v.snapshot(); !running {
		t.Fatal("feed must start running")
	}

	binder.dispatch(t, "feed", "pause")
	if _, running := v.snapshot(); running {
		t.Fatal("feed must pause")
	}
	firstTask := c.feedTask

	binder.dispatch(t, "feed", "resume")
	if _, running := v.snapshot(); !running {
		t.Fatal("feed must resume")
	}
	if c.feedTask == firstTask {
		t.Error("resume must arm a fresh task, never reuse the stopped one")
	}
}

// ── learning (scenario C) ────────────────────────────────────────────────────

func TestTrainingRunCompletes(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingLearningView{}
	c := NewLearning(m, v, io.Discard, time.Millisecond)
	defer c.Destroy()

	binder := newFakeBinder()
	c.Init(context.Background(), binder)
	binder.dispatch(t, "train", "start")

	deadline := time.After(2 * time.Second)
	for {
		state := m.Training()
		if !state.InProgress && state.Progress == 100 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("training did not complete: %+v", state)
		case <-time.After(5 * time.Millisecond):
		}
	}

	state := m.Training()
	if len(state.Logs) != trainingTicks {
		t.Errorf("expected %d log lines, got %d", trainingTicks, len(state.Logs))
	}
	if got := m.KPIs().ModelConfidence; math.Abs(got-0.89) > 1e-9 {
		t.Errorf("expected confidence 0.89 after completion, got %v", got)
	}
}

func TestTrainingStartWhileRunningIsNoOp(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingLearningView{}
	c := NewLearning(m, v, io.Discard, 50*time.Millisecond)
	defer c.Destroy()

	binder := newFakeBinder()
	c.Init(context.Background(), binder)
	binder.dispatch(t, "train", "start")
	binder.dispatch(t, "train", "start")

	if !m.Training().InProgress {
		t.Fatal("training should be in progress")
	}
}

func TestTrainingAbortedOnDestroyCanRestart(t *testing.T) {
	gw := &stubGateway{}
	m := model.NewDataModel(gw, nil)
	v := &recordingLearningView{}
	c := NewLearning(m, v, io.Discard, 10*time.Millisecond)

	binder := newFakeBinder()
	c.Init(context.Background(), binder)
	binder.dispatch(t, "train", "start")

	deadline := time.After(2 * time.Second)
	for m.Training().Progress == 0 {
		select {
		case <-deadline:
			t.Fatal("training never advanced")
		case <-time.After(time.Millisecond):
		}
	}
	c.Destroy()

	if m.Training().InProgress {
		t.Fatal("abandoned run should return the session to idle")
	}

	c2 := NewLearning(m, v, io.Discard, time.Millisecond)
	defer c2.Destroy()
	binder2 := newFakeBinder()
	c2.Init(context.Background(), binder2)
	binder2.dispatch(t, "train", "start")

	deadline = time.After(2 * time.Second)
	for {
		state := m.Training()
		if !state.InProgress && state.Progress == 100 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("restarted training did not complete: %+v", state)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

