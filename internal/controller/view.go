package controller

import (
	"context"
	"fmt"

	"github.com/webhydra/console/internal/model"
)

// Binder registers a command handler with the input loop. Binding the same
// command twice replaces the previous handler, so a controller re-running
// its bind step is harmless.
type Binder interface {
	Bind(command string, fn func(ctx context.Context, args []string))
}

// Recorder notes a completed state-changing command. Controllers call it
// only after a mutation actually happened; rejected input is never noted.
// A nil Recorder notes nothing.
type Recorder func(detail string)

func (r Recorder) note(format string, args ...any) {
	if r != nil {
		r(fmt.Sprintf(format, args...))
	}
}

// Per-page view capability interfaces. Each controller names exactly the
// render surface it drives; the view package's concrete types satisfy them.

// DashboardView renders the monitoring overview.
type DashboardView interface {
	RenderKPIs(k *model.KPISnapshot)
	RenderTraffic(values []int)
	RenderOWASP(counts map[string]int)
	RenderAlerts(alerts []model.Alert)
	RenderHealth(report model.HealthReport)
}

// LogsView renders a paginated, filtered log table.
type LogsView interface {
	RenderFilters(search, logType string, severity model.Severity, day string)
	RenderPage(heading string, entries []model.LogEntry, page, totalPages, total int)
}

// RulesView renders the rule table.
type RulesView interface {
	RenderRules(rules []model.Rule, canManage bool)
}

// UsersView renders the account table.
type UsersView interface {
	RenderUsers(users []model.User, current string)
}

// RecommendationsView renders recommendation cards and generated analyses.
type RecommendationsView interface {
	RenderRecommendations(recs []model.Recommendation)
	RenderPatch(rec model.PatchRecommendation)
}

// ThreatView renders the heatmap, anomaly feed, and TI results.
type ThreatView interface {
	RenderHeatmap(grid [][]float64)
	RenderFeed(lines []string, running bool)
	RenderTIResult(result model.TIResult)
	RenderFeedIndicators(provider string, indicators []model.FeedIndicator)
}

// LearningView renders the training page.
type LearningView interface {
	RenderTraining(state model.TrainingState, confidence float64)
}

// SettingsView renders the settings and profile pages.
type SettingsView interface {
	RenderSettings(s *model.Settings)
	RenderProfile(sess model.Session, theme, apiKey string)
}
