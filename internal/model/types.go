// Package model holds the in-memory domain state of the Hydra console: the
// server-derived dashboard snapshot, the locally persisted rule overrides and
// user accounts, and the authentication session. Controllers mutate the model
// through its exported operations; views receive plain values and never reach
// back into it.
package model

import (
	"strings"
	"time"
)

// Severity is the urgency level of an alert or log entry. The four canonical
// values are ordered Critical < High < Medium < Low for sorting purposes.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// severityRank maps each canonical severity to its sort rank. Lower ranks
// sort first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the sort rank of s. Unknown severities rank after all
// canonical ones so they sink to the bottom of a severity sort.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// NormalizeSeverity maps an arbitrary severity string onto one of the four
// canonical values, case-insensitively. Anything unrecognized becomes Low.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityLow
	}
}

// KPISnapshot is the dashboard's headline metric block. It is replaced
// wholesale on each successful fetch and retains its previous value when a
// fetch fails.
type KPISnapshot struct {
	TotalRequests   int     `json:"totalRequests"`
	BlockedAttacks  int     `json:"blockedAttacks"`
	FalsePositives  int     `json:"falsePositives"`
	ModelConfidence float64 `json:"modelConfidence"`
}

// Alert is a single WAF detection event.
type Alert struct {
	ID          int      `json:"id"`
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	// Timestamp is the event time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// LogEntry is one row of the WAF request/event log.
type LogEntry struct {
	ID       int      `json:"id"`
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Timestamp is the log time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Day returns the calendar day of the entry in the local time zone, for
// same-day filter matching.
func (l LogEntry) Day() time.Time {
	t := time.UnixMilli(l.Timestamp).Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Rule is a WAF detection/mitigation rule. Rules with IDs above
// SeedRuleMaxID were added from the console and are persisted locally;
// the built-in seed rules are not re-persisted.
type Rule struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// SeedRuleMaxID is the highest rule ID shipped with the backend seed set.
// Rules at or below this ID are built-in and are never written to the local
// store.
const SeedRuleMaxID = 3

// RuleAction is the rule template attached to a recommendation.
type RuleAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Recommendation is a suggested WAF change. Applied is monotonic: once true
// it never reverts, and applying again is a no-op.
type Recommendation struct {
	ID      int        `json:"id"`
	Message string     `json:"message"`
	Action  RuleAction `json:"action"`
	Applied bool       `json:"applied"`
}

// TrainingState tracks the model-training lifecycle on the learning page.
type TrainingState struct {
	InProgress bool     `json:"inProgress"`
	Progress   int      `json:"progress"`
	Logs       []string `json:"logs"`
}

// Settings is the editable backend configuration exposed on the settings
// page. Fields absent from a response are treated as "no data".
type Settings struct {
	Sensitivity string `json:"sensitivity"`
	Mode        string `json:"mode"`
	NotifyEmail string `json:"notifyEmail"`
}

// TIResult is the outcome of one reputation lookup against a single
// threat-intel provider. Exactly one of (Risk, Summary) or Error is
// meaningful; Provider is always set.
type TIResult struct {
	Risk     string `json:"risk"`
	Summary  string `json:"summary"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}

// Mitigation is one suggested countermeasure in a patch recommendation.
type Mitigation struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// VirtualPatch is a deployable rule snippet in a patch recommendation.
type VirtualPatch struct {
	Target string `json:"target"`
	Rule   string `json:"rule"`
}

// PatchRecommendation is the generated analysis of an attack description.
// A non-empty Error means generation failed and the other fields are unset.
type PatchRecommendation struct {
	AttackType     string         `json:"attack_type"`
	RiskLevel      string         `json:"risk_level"`
	RootCause      string         `json:"root_cause"`
	Mitigations    []Mitigation   `json:"mitigations"`
	VirtualPatches []VirtualPatch `json:"virtual_patches"`
	References     []string       `json:"references,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// FeedIndicator is one entry of a TI provider's recent-indicator feed.
type FeedIndicator struct {
	Indicator string `json:"indicator"`
	Type      string `json:"type"`
	Source    string `json:"source"`
}

// HealthStatus is the reachability of one backend.
type HealthStatus struct {
	Online bool
	Err    string
}

// HealthReport combines the WAF and TI backend health probes.
type HealthReport struct {
	WAF HealthStatus
	TI  HealthStatus
}

// LoginResult is the outcome of an authentication attempt, surfaced inline
// on the login form rather than as an error.
type LoginResult struct {
	Success  bool
	Message  string
	Username string
	Role     Role
	Token    string
}
