package model

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Gateway is the subset of the remote data gateway the model consumes. Every
// method degrades to a typed empty value on failure; none of them return an
// error.
type Gateway interface {
	FetchKPIs(ctx context.Context) *KPISnapshot
	FetchAlerts(ctx context.Context, limit int) []Alert
	FetchTraffic(ctx context.Context) []int
	FetchOWASP(ctx context.Context) map[string]int
	FetchHeatmap(ctx context.Context) [][]float64
	FetchLogs(ctx context.Context, limit, offset int) []LogEntry
	FetchSyslogs(ctx context.Context, limit, offset int) []LogEntry
	FetchRules(ctx context.Context) []Rule
}

// DataStore is the subset of the durable store the data model needs.
type DataStore interface {
	RuleOverrides() []Rule
	SetRuleOverrides(rules []Rule) error
	APIKey() string
	SetAPIKey(key string) error
}

// seedRules are the built-in WAF rules present before any server fetch or
// local override. Their IDs stay at or below SeedRuleMaxID.
func seedRules() []Rule {
	return []Rule{
		{ID: 1, Name: "Block SQL Injection", Description: "Detect and block SQL injection patterns", Enabled: true},
		{ID: 2, Name: "Inspect XSS", Description: "Sanitize inputs to mitigate XSS", Enabled: true},
		{ID: 3, Name: "Rate Limiting", Description: "Limit requests per IP", Enabled: false},
	}
}

// seedRecommendations are the initial recommendation cards shown before any
// live analysis has produced new ones.
func seedRecommendations() []Recommendation {
	return []Recommendation{
		{
			ID:      1,
			Message: "Frequent SQL injection attempts detected. Consider tightening SQLi rule sensitivity.",
			Action:  RuleAction{Name: "Tighten SQLi Rule", Description: "Add stricter patterns to SQLi detection"},
		},
		{
			ID:      2,
			Message: "Multiple XSS alerts observed. Suggest enabling CSP headers.",
			Action:  RuleAction{Name: "Enable CSP", Description: "Configure Content Security Policy headers"},
		},
	}
}

// baseModelConfidence is assumed when training completes before any KPI
// fetch has populated the confidence value.
const baseModelConfidence = 0.87

// maxModelConfidence caps the confidence bump applied on training
// completion.
const maxModelConfidence = 0.99

// confidenceBump is added to the model confidence each time training
// completes.
const confidenceBump = 0.02

// DataModel owns the in-memory snapshot of server-derived and locally
// persisted domain state for one console instance. Loads adopt non-empty
// results and retain the previous value otherwise; getters never fail and
// return type-correct empty defaults before the first load. Safe for
// concurrent use: poll tasks and the input loop share one instance.
type DataModel struct {
	mu    sync.RWMutex
	gw    Gateway
	store DataStore

	kpis            *KPISnapshot
	alerts          []Alert
	traffic         []int
	owasp           map[string]int
	heatmap         [][]float64
	rules           []Rule
	logs            []LogEntry
	syslogs         []LogEntry
	recommendations []Recommendation
	training        TrainingState
	apiKey          string
}

// NewDataModel builds a model seeded with the built-in rules, the locally
// persisted rule overrides, and the initial recommendations.
func NewDataModel(gw Gateway, store DataStore) *DataModel {
	m := &DataModel{
		gw:              gw,
		store:           store,
		rules:           seedRules(),
		recommendations: seedRecommendations(),
	}
	if store != nil {
		m.rules = append(m.rules, store.RuleOverrides()...)
		m.apiKey = store.APIKey()
	}
	return m
}

// ── loads ────────────────────────────────────────────────────────────────────

// LoadDashboard fans out the five dashboard fetches concurrently and applies
// each result independently: a non-empty result replaces the resource
// wholesale, an empty one leaves the previous value untouched. It returns
// only after all five settle; one slow or failing resource never blocks or
// invalidates the others.
func (m *DataModel) LoadDashboard(ctx context.Context) {
	var (
		kpis    *KPISnapshot
		alerts  []Alert
		traffic []int
		owasp   map[string]int
		heatmap [][]float64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { kpis = m.gw.FetchKPIs(ctx); return nil })
	g.Go(func() error { alerts = m.gw.FetchAlerts(ctx, 10); return nil })
	g.Go(func() error { traffic = m.gw.FetchTraffic(ctx); return nil })
	g.Go(func() error { owasp = m.gw.FetchOWASP(ctx); return nil })
	g.Go(func() error { heatmap = m.gw.FetchHeatmap(ctx); return nil })
	_ = g.Wait() // fetches degrade internally and never return errors

	m.mu.Lock()
	defer m.mu.Unlock()
	if kpis != nil {
		m.kpis = kpis
	}
	if len(alerts) > 0 {
		m.alerts = alerts
	}
	if len(traffic) > 0 {
		m.traffic = traffic
	}
	if len(owasp) > 0 {
		m.owasp = owasp
	}
	if len(heatmap) > 0 {
		m.heatmap = heatmap
	}
}

// LoadLogs fetches the most recent log window and adopts it when non-empty.
func (m *DataModel) LoadLogs(ctx context.Context) []LogEntry {
	logs := m.gw.FetchLogs(ctx, 100, 0)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(logs) > 0 {
		m.logs = normalizeLogSeverities(logs)
	}
	return m.logs
}

// LoadSyslogs fetches the most recent syslog window. Unlike LoadLogs an
// empty result is adopted: syslog forwarding may legitimately go quiet.
func (m *DataModel) LoadSyslogs(ctx context.Context) []LogEntry {
	logs := m.gw.FetchSyslogs(ctx, 100, 0)
	m.mu.Lock()
	defer m.mu.Unlock()
	if logs != nil {
		m.syslogs = normalizeLogSeverities(logs)
	}
	return m.syslogs
}

// LoadRules adopts the server's rule set when non-empty, re-appending the
// local overrides so user-added rules survive a refresh.
func (m *DataModel) LoadRules(ctx context.Context) {
	fetched := m.gw.FetchRules(ctx)
	if len(fetched) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := fetched
	if m.store != nil {
		merged = append(merged, m.store.RuleOverrides()...)
	}
	m.rules = merged
}

// normalizeLogSeverities maps raw severity strings onto the canonical four.
func normalizeLogSeverities(logs []LogEntry) []LogEntry {
	for i := range logs {
		logs[i].Severity = NormalizeSeverity(string(logs[i].Severity))
	}
	return logs
}

// ── getters ──────────────────────────────────────────────────────────────────
//
// Each getter returns a copy (or value) so callers can filter and sort
// without disturbing the canonical collection order.

// KPIs returns the current KPI snapshot, zero-valued before the first load.
func (m *DataModel) KPIs() KPISnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.kpis == nil {
		return KPISnapshot{}
	}
	return *m.kpis
}

// HasKPIs reports whether any KPI snapshot has been adopted yet, letting a
// renderer distinguish "never loaded" from a genuinely zero snapshot.
func (m *DataModel) HasKPIs() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kpis != nil
}

// Alerts returns the current alert collection.
func (m *DataModel) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Traffic returns the 30-point traffic series.
func (m *DataModel) Traffic() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.traffic))
	copy(out, m.traffic)
	return out
}

// OWASPCounts returns the per-category attack counts.
func (m *DataModel) OWASPCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.owasp))
	for k, v := range m.owasp {
		out[k] = v
	}
	return out
}

// Heatmap returns the 7×24 day×hour intensity grid.
func (m *DataModel) Heatmap() [][]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]float64, len(m.heatmap))
	for i, row := range m.heatmap {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Rules returns the current rule collection in canonical order.
func (m *DataModel) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Logs returns the current log collection.
func (m *DataModel) Logs() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LogEntry, len(m.logs))
	copy(out, m.logs)
	return out
}

// Syslogs returns the current syslog collection.
func (m *DataModel) Syslogs() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LogEntry, len(m.syslogs))
	copy(out, m.syslogs)
	return out
}

// Recommendations returns the current recommendation cards.
func (m *DataModel) Recommendations() []Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Recommendation, len(m.recommendations))
	copy(out, m.recommendations)
	return out
}

// Training returns the current training state.
func (m *DataModel) Training() TrainingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.training
	t.Logs = append([]string(nil), m.training.Logs...)
	return t
}

// APIKey returns the cached backend API key.
func (m *DataModel) APIKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.apiKey
}

// SetAPIKey caches the backend API key in memory and in the store.
func (m *DataModel) SetAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
	if m.store != nil {
		_ = m.store.SetAPIKey(key)
	}
}

// ── rule mutations ───────────────────────────────────────────────────────────

// AddRule appends a new rule, assigning id max(existing)+1 (1 when the
// collection is empty). Deleted ids are never reused because assignment only
// looks at the current maximum.
func (m *DataModel) AddRule(name, description string, enabled bool) Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := 1
	for _, r := range m.rules {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	rule := Rule{ID: id, Name: name, Description: description, Enabled: enabled}
	m.rules = append(m.rules, rule)
	m.persistRulesLocked()
	return rule
}

// RuleUpdate carries a partial rule change; nil fields keep their current
// value.
type RuleUpdate struct {
	Name        *string
	Description *string
	Enabled     *bool
}

// UpdateRule merges upd into the rule with the given id. It reports whether
// the rule existed.
func (m *DataModel) UpdateRule(id int, upd RuleUpdate) (Rule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID != id {
			continue
		}
		if upd.Name != nil {
			m.rules[i].Name = *upd.Name
		}
		if upd.Description != nil {
			m.rules[i].Description = *upd.Description
		}
		if upd.Enabled != nil {
			m.rules[i].Enabled = *upd.Enabled
		}
		m.persistRulesLocked()
		return m.rules[i], true
	}
	return Rule{}, false
}

// DeleteRule removes the rule with the given id, reporting whether it
// existed.
func (m *DataModel) DeleteRule(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			m.persistRulesLocked()
			return true
		}
	}
	return false
}

// ToggleRule flips the enabled flag of the rule with the given id and
// returns the new state. The second result reports whether the rule existed.
func (m *DataModel) ToggleRule(id int) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].Enabled = !m.rules[i].Enabled
			m.persistRulesLocked()
			return m.rules[i].Enabled, true
		}
	}
	return false, false
}

// persistRulesLocked writes the user-added subset (id > SeedRuleMaxID) to
// the store. Callers must hold m.mu.
func (m *DataModel) persistRulesLocked() {
	if m.store == nil {
		return
	}
	overrides := make([]Rule, 0)
	for _, r := range m.rules {
		if r.ID > SeedRuleMaxID {
			overrides = append(overrides, r)
		}
	}
	_ = m.store.SetRuleOverrides(overrides)
}

// ── recommendations ──────────────────────────────────────────────────────────

// ApplyRecommendation marks the recommendation applied and synthesizes a new
// rule from its action. Applying an already-applied recommendation is a
// no-op and creates no duplicate rule.
func (m *DataModel) ApplyRecommendation(id int) (Rule, bool) {
	m.mu.Lock()
	var action RuleAction
	found := false
	for i := range m.recommendations {
		if m.recommendations[i].ID == id && !m.recommendations[i].Applied {
			m.recommendations[i].Applied = true
			action = m.recommendations[i].Action
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return Rule{}, false
	}
	return m.AddRule(action.Name, action.Description, true), true
}

// AddRecommendation appends a generated recommendation card, assigning the
// next id.
func (m *DataModel) AddRecommendation(message string, action RuleAction) Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := 1
	for _, r := range m.recommendations {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	rec := Recommendation{ID: id, Message: message, Action: action}
	m.recommendations = append(m.recommendations, rec)
	return rec
}

// ── training lifecycle ───────────────────────────────────────────────────────

// StartTraining moves the training state to in-progress with a clean slate.
// It reports false, changing nothing, when a session is already in progress.
func (m *DataModel) StartTraining() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.training.InProgress {
		return false
	}
	m.training = TrainingState{InProgress: true, Progress: 0, Logs: []string{}}
	return true
}

// UpdateTraining advances the progress percentage and appends one log line.
func (m *DataModel) UpdateTraining(progress int, logLine string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.training.InProgress {
		return
	}
	m.training.Progress = progress
	if logLine != "" {
		m.training.Logs = append(m.training.Logs, logLine)
	}
}

// AbortTraining returns an in-progress session to idle without touching the
// model confidence. Progress and log lines are kept so a partial run stays
// visible until the next start.
func (m *DataModel) AbortTraining() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.training.InProgress = false
}

// CompleteTraining finishes the session and nudges the model confidence
// upward by confidenceBump, capped at maxModelConfidence.
func (m *DataModel) CompleteTraining() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.training.InProgress {
		return
	}
	m.training.InProgress = false
	m.training.Progress = 100
	if m.kpis == nil {
		m.kpis = &KPISnapshot{ModelConfidence: baseModelConfidence}
	}
	if m.kpis.ModelConfidence == 0 {
		m.kpis.ModelConfidence = baseModelConfidence
	}
	m.kpis.ModelConfidence += confidenceBump
	if m.kpis.ModelConfidence > maxModelConfidence {
		m.kpis.ModelConfidence = maxModelConfidence
	}
}
