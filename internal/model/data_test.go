package model

import (
	"context"
	"math"
	"testing"
)

// fakeGateway is a scriptable Gateway test double. Zero-valued fields mean
// "fetch failed" (typed empty results).
type fakeGateway struct {
	kpis    *KPISnapshot
	alerts  []Alert
	traffic []int
	owasp   map[string]int
	heatmap [][]float64
	logs    []LogEntry
	syslogs []LogEntry
	rules   []Rule
}

func (f *fakeGateway) FetchKPIs(context.Context) *KPISnapshot            { return f.kpis }
func (f *fakeGateway) FetchAlerts(_ context.Context, _ int) []Alert     { return f.alerts }
func (f *fakeGateway) FetchTraffic(context.Context) []int               { return f.traffic }
func (f *fakeGateway) FetchOWASP(context.Context) map[string]int        { return f.owasp }
func (f *fakeGateway) FetchHeatmap(context.Context) [][]float64         { return f.heatmap }
func (f *fakeGateway) FetchLogs(_ context.Context, _, _ int) []LogEntry { return f.logs }
func (f *fakeGateway) FetchSyslogs(_ context.Context, _, _ int) []LogEntry {
	return f.syslogs
}
func (f *fakeGateway) FetchRules(context.Context) []Rule { return f.rules }

// fakeStore is an in-memory DataStore double.
type fakeStore struct {
	overrides []Rule
	apiKey    string
}

func (f *fakeStore) RuleOverrides() []Rule            { return f.overrides }
func (f *fakeStore) SetRuleOverrides(r []Rule) error  { f.overrides = r; return nil }
func (f *fakeStore) APIKey() string                   { return f.apiKey }
func (f *fakeStore) SetAPIKey(k string) error         { f.apiKey = k; return nil }

func TestLoadDashboard_AdoptsNonEmptyResults(t *testing.T) {
	gw := &fakeGateway{
		kpis:    &KPISnapshot{TotalRequests: 100, ModelConfidence: 0.9},
		alerts:  []Alert{{ID: 1, Type: "SQLi", Severity: SeverityHigh}},
		traffic: []int{1, 2, 3},
		owasp:   map[string]int{"SQLi": 5},
		heatmap: [][]float64{{0.1, 0.2}},
	}
	m := NewDataModel(gw, nil)
	m.LoadDashboard(context.Background())

	if got := m.KPIs().TotalRequests; got != 100 {
		t.Errorf("KPIs.TotalRequests = %d, want 100", got)
	}
	if got := len(m.Alerts()); got != 1 {
		t.Errorf("len(Alerts) = %d, want 1", got)
	}
	if got := len(m.Traffic()); got != 3 {
		t.Errorf("len(Traffic) = %d, want 3", got)
	}
	if got := m.OWASPCounts()["SQLi"]; got != 5 {
		t.Errorf("OWASPCounts[SQLi] = %d, want 5", got)
	}
	if got := len(m.Heatmap()); got != 1 {
		t.Errorf("len(Heatmap) = %d, want 1", got)
	}
}

func TestLoadDashboard_FailedFetchRetainsPrevious(t *testing.T) {
	gw := &fakeGateway{
		kpis:   &KPISnapshot{TotalRequests: 100},
		alerts: []Alert{{ID: 1}},
	}
	m := NewDataModel(gw, nil)
	m.LoadDashboard(context.Background())

	// Second cycle: every fetch fails.
	gw.kpis = nil
	gw.alerts = nil
	m.LoadDashboard(context.Background())

	if got := m.KPIs().TotalRequests; got != 100 {
		t.Errorf("KPIs reset on failed fetch: TotalRequests = %d, want 100", got)
	}
	if got := len(m.Alerts()); got != 1 {
		t.Errorf("Alerts reset on failed fetch: len = %d, want 1", got)
	}
}

func TestGetters_DefaultsBeforeFirstLoad(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, nil)

	// LoadDashboard against an all-failing gateway must complete.
	m.LoadDashboard(context.Background())

	if got := m.KPIs(); got != (KPISnapshot{}) {
		t.Errorf("KPIs before load = %+v, want zero value", got)
	}
	if got := m.Alerts(); got == nil || len(got) != 0 {
		t.Errorf("Alerts before load = %v, want empty non-nil slice", got)
	}
	if got := m.OWASPCounts(); got == nil {
		t.Error("OWASPCounts before load is nil, want empty map")
	}
	if got := m.Training(); got.InProgress || got.Progress != 0 {
		t.Errorf("Training before load = %+v, want idle zero state", got)
	}
}

func TestAddRule_IDAssignment(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, &fakeStore{})

	// Seed rules occupy ids 1..3.
	r := m.AddRule("Block Bots", "Deny known bad user agents", true)
	if r.ID != 4 {
		t.Fatalf("first added rule id = %d, want 4", r.ID)
	}

	// Deleting a low id must not cause reuse.
	if !m.DeleteRule(2) {
		t.Fatal("DeleteRule(2) reported missing rule")
	}
	r2 := m.AddRule("GeoBlock", "Deny selected regions", false)
	if r2.ID != 5 {
		t.Errorf("rule id after delete = %d, want 5 (no reuse)", r2.ID)
	}
}

func TestAddRule_EmptyCollectionStartsAtOne(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, nil)
	for _, id := range []int{1, 2, 3} {
		if !m.DeleteRule(id) {
			t.Fatalf("DeleteRule(%d) reported missing rule", id)
		}
	}
	r := m.AddRule("First", "first rule", true)
	if r.ID != 1 {
		t.Errorf("rule id on empty collection = %d, want 1", r.ID)
	}
}

func TestRulePersistence_OnlyUserAddedSubset(t *testing.T) {
	st := &fakeStore{}
	m := NewDataModel(&fakeGateway{}, st)

	m.AddRule("Custom", "user-added", true)
	if len(st.overrides) != 1 {
		t.Fatalf("persisted overrides = %d rules, want 1", len(st.overrides))
	}
	if st.overrides[0].ID != 4 {
		t.Errorf("persisted override id = %d, want 4", st.overrides[0].ID)
	}

	// Mutating a seed rule re-persists but still excludes seeds.
	if _, ok := m.ToggleRule(1); !ok {
		t.Fatal("ToggleRule(1) reported missing rule")
	}
	for _, r := range st.overrides {
		if r.ID <= SeedRuleMaxID {
			t.Errorf("seed rule id %d leaked into persisted overrides", r.ID)
		}
	}
}

func TestUpdateRule_PartialMerge(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, &fakeStore{})
	name := "Renamed"
	r, ok := m.UpdateRule(1, RuleUpdate{Name: &name})
	if !ok {
		t.Fatal("UpdateRule(1) reported missing rule")
	}
	if r.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", r.Name)
	}
	if r.Description != "Detect and block SQL injection patterns" {
		t.Errorf("Description changed on partial update: %q", r.Description)
	}
	if !r.Enabled {
		t.Error("Enabled changed on partial update")
	}
}

func TestApplyRecommendation_Monotonic(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, &fakeStore{})

	rule, ok := m.ApplyRecommendation(1)
	if !ok {
		t.Fatal("first apply reported failure")
	}
	if rule.Name != "Tighten SQLi Rule" {
		t.Errorf("synthesized rule name = %q", rule.Name)
	}
	rulesAfterFirst := len(m.Rules())

	// Re-applying must be a no-op: no new rule, applied stays true.
	if _, ok := m.ApplyRecommendation(1); ok {
		t.Error("second apply reported success, want no-op")
	}
	if got := len(m.Rules()); got != rulesAfterFirst {
		t.Errorf("rules after re-apply = %d, want %d (no duplicate)", got, rulesAfterFirst)
	}
	for _, rec := range m.Recommendations() {
		if rec.ID == 1 && !rec.Applied {
			t.Error("recommendation reverted to applied=false")
		}
	}
}

func TestTrainingLifecycle(t *testing.T) {
	m := NewDataModel(&fakeGateway{}, nil)

	if !m.StartTraining() {
		t.Fatal("StartTraining returned false on idle state")
	}
	if m.StartTraining() {
		t.Error("StartTraining succeeded while in progress, want no-op")
	}

	const steps = 20
	for i := 1; i <= steps; i++ {
		m.UpdateTraining(i*100/steps, "epoch line")
	}
	m.CompleteTraining()

	tr := m.Training()
	if tr.InProgress {
		t.Error("InProgress = true after completion")
	}
	if tr.Progress != 100 {
		t.Errorf("Progress = %d, want 100", tr.Progress)
	}
	if len(tr.Logs) != steps {
		t.Errorf("len(Logs) = %d, want %d", len(tr.Logs), steps)
	}
	// No KPI fetch happened, so confidence starts from the base value.
	want := baseModelConfidence + confidenceBump
	if got := m.KPIs().ModelConfidence; math.Abs(got-want) > 1e-9 {
		t.Errorf("ModelConfidence = %v, want %v", got, want)
	}
}

func TestCompleteTraining_ConfidenceCap(t *testing.T) {
	gw := &fakeGateway{kpis: &KPISnapshot{ModelConfidence: 0.985}}
	m := NewDataModel(gw, nil)
	m.LoadDashboard(context.Background())

	m.StartTraining()
	m.CompleteTraining()

	if got := m.KPIs().ModelConfidence; got != maxModelConfidence {
		t.Errorf("ModelConfidence = %v, want cap %v", got, maxModelConfidence)
	}
}

func TestLoadLogs_NormalizesSeverity(t *testing.T) {
	gw := &fakeGateway{logs: []LogEntry{
		{ID: 1, Severity: "CRITICAL"},
		{ID: 2, Severity: "high"},
		{ID: 3, Severity: "unknown"},
	}}
	m := NewDataModel(gw, nil)
	logs := m.LoadLogs(context.Background())

	want := []Severity{SeverityCritical, SeverityHigh, SeverityLow}
	for i, l := range logs {
		if l.Severity != want[i] {
			t.Errorf("logs[%d].Severity = %q, want %q", i, l.Severity, want[i])
		}
	}
}

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
	}{
		{"Critical", SeverityCritical},
		{"critical", SeverityCritical},
		{" HIGH ", SeverityHigh},
		{"Medium", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityLow},
		{"bogus", SeverityLow},
	}
	for _, tc := range cases {
		if got := NormalizeSeverity(tc.in); got != tc.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSeverityRank_Ordering(t *testing.T) {
	if !(SeverityCritical.Rank() < SeverityHigh.Rank() &&
		SeverityHigh.Rank() < SeverityMedium.Rank() &&
		SeverityMedium.Rank() < SeverityLow.Rank()) {
		t.Error("severity ranks are not ordered Critical < High < Medium < Low")
	}
	if Severity("weird").Rank() <= SeverityLow.Rank() {
		t.Error("unknown severity should rank after Low")
	}
}
