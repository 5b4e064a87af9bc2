package server

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
)

// trainTotalSteps is the number of progress steps in a stub training run.
const trainTotalSteps = 20

// dataset is the in-memory state the stub backend serves. Read-only fields
// are generated once at construction; rules, settings, and the training run
// are mutable and guarded.
type dataset struct {
	kpis    model.KPISnapshot
	alerts  []model.Alert
	traffic []int
	owasp   map[string]int
	heatmap [][]float64
	logs    []model.LogEntry
	syslogs []model.LogEntry

	mu        sync.Mutex
	rules     []model.Rule
	settings  model.Settings
	trainTick time.Duration
	trainedAt time.Time
	training  bool
}

// newDataset seeds the stub state. The generator is seeded explicitly so two
// servers built with the same seed serve identical data, which keeps test
// assertions stable.
func newDataset(seed int64, trainTick time.Duration) *dataset {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now()

	d := &dataset{
		kpis: model.KPISnapshot{
			TotalRequests:   123456,
			BlockedAttacks:  2345,
			FalsePositives:  56,
			ModelConfidence: 0.87,
		},
		owasp: map[string]int{
			"SQLi":              120,
			"XSS":               90,
			"CSRF":              50,
			"Command Injection": 40,
			"Path Traversal":    30,
		},
		alerts: []model.Alert{
			{ID: 1, Type: "SQLi", Severity: model.SeverityHigh, Description: "Suspicious SELECT detected", Timestamp: now.Add(-1 * time.Hour).UnixMilli()},
			{ID: 2, Type: "XSS", Severity: model.SeverityMedium, Description: "Possible script injection", Timestamp: now.Add(-2 * time.Hour).UnixMilli()},
			{ID: 3, Type: "CSRF", Severity: model.SeverityLow, Description: "Potential CSRF token misuse", Timestamp: now.Add(-3 * time.Hour).UnixMilli()},
			{ID: 4, Type: "Command Injection", Severity: model.SeverityCritical, Description: "Command pattern detected", Timestamp: now.Add(-4 * time.Hour).UnixMilli()},
			{ID: 5, Type: "Path Traversal", Severity: model.SeverityMedium, Description: "Directory traversal attempt", Timestamp: now.Add(-5 * time.Hour).UnixMilli()},
		},
		rules: []model.Rule{
			{ID: 1, Name: "Block SQL Injection", Description: "Detect and block SQL injection patterns", Enabled: true},
			{ID: 2, Name: "Inspect XSS", Description: "Sanitize inputs to mitigate XSS", Enabled: true},
			{ID: 3, Name: "Rate Limiting", Description: "Limit requests per IP", Enabled: false},
		},
		settings: model.Settings{
			Sensitivity: "medium",
			Mode:        "block",
			NotifyEmail: "soc@example.com",
		},
		trainTick: trainTick,
	}

	d.traffic = make([]int, 30)
	for i := range d.traffic {
		d.traffic[i] = 500 + rng.Intn(1000)
	}

	d.heatmap = make([][]float64, 7)
	for day := range d.heatmap {
		row := make([]float64, 24)
		for hour := range row {
			row[hour] = rng.Float64()
		}
		d.heatmap[day] = row
	}

	logTypes := []string{"Info", "Warning", "Attack"}
	severities := []model.Severity{model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical}
	messages := []string{
		"Request received",
		"Potential misuse detected",
		"Anomaly detected",
		"User logged in",
		"Rule triggered",
	}
	d.logs = make([]model.LogEntry, 60)
	for i := range d.logs {
		d.logs[i] = model.LogEntry{
			ID:        i + 1,
			Type:      logTypes[rng.Intn(len(logTypes))],
			Severity:  severities[rng.Intn(len(severities))],
			Message:   messages[rng.Intn(len(messages))],
			Timestamp: now.Add(-time.Duration(rng.Intn(10*24)) * time.Hour).UnixMilli(),
		}
	}

	sysMessages := []string{
		"Service started",
		"Configuration reloaded",
		"Rule set synchronized",
		"Session expired",
		"Backup completed",
	}
	d.syslogs = make([]model.LogEntry, 40)
	for i := range d.syslogs {
		d.syslogs[i] = model.LogEntry{
			ID:        i + 1,
			Type:      "System",
			Severity:  model.SeverityLow,
			Message:   sysMessages[rng.Intn(len(sysMessages))],
			Timestamp: now.Add(-time.Duration(rng.Intn(5*24)) * time.Hour).UnixMilli(),
		}
	}

	return d
}

// Rules returns a copy of the current rule set.
func (d *dataset) Rules() []model.Rule {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// ToggleRule sets the enabled flag of the rule with the given id and returns
// the updated rule, or false when no such rule exists.
func (d *dataset) ToggleRule(id int, enabled bool) (model.Rule, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.rules {
		if d.rules[i].ID == id {
			d.rules[i].Enabled = enabled
			return d.rules[i], true
		}
	}
	return model.Rule{}, false
}

// Settings returns the current backend settings.
func (d *dataset) Settings() model.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// SetSettings replaces the backend settings and returns the saved value.
func (d *dataset) SetSettings(s model.Settings) model.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = s
	return d.settings
}

// StartTraining begins a stub training run. It reports false when a run is
// already in progress.
func (d *dataset) StartTraining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.training && d.progressLocked() < 100 {
		return false
	}
	d.training = true
	d.trainedAt = time.Now()
	return true
}

// TrainingStatus derives the current run state from elapsed time: one
// progress step per trainTick, complete after trainTotalSteps.
func (d *dataset) TrainingStatus() model.TrainingState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.training {
		return model.TrainingState{Logs: []string{}}
	}
	progress := d.progressLocked()
	st := model.TrainingState{
		InProgress: progress < 100,
		Progress:   progress,
		Logs:       []string{},
	}
	steps := progress * trainTotalSteps / 100
	for i := 1; i <= steps; i++ {
		st.Logs = append(st.Logs, fmt.Sprintf("epoch %d complete", i))
	}
	return st
}

// progressLocked computes training progress in percent. Caller holds mu.
func (d *dataset) progressLocked() int {
	if !d.training {
		return 0
	}
	steps := int(time.Since(d.trainedAt) / d.trainTick)
	if steps > trainTotalSteps {
		steps = trainTotalSteps
	}
	return steps * 100 / trainTotalSteps
}
