package controller

import (
	"testing"
	"time"

	"github.com/webhydra/console/internal/model"
)

func TestSortAlertsBySeverityIsStable(t *testing.T) {
	alerts := []model.Alert{
		{ID: 1, Severity: model.SeverityLow},
		{ID: 2, Severity: model.SeverityCritical},
		{ID: 3, Severity: model.SeverityLow},
		{ID: 4, Severity: model.SeverityHigh},
		{ID: 5, Severity: model.SeverityCritical},
	}
	sorted := SortAlerts(alerts, SortBySeverity)

	wantOrder := []int{2, 5, 4, 1, 3}
	for i, want := range wantOrder {
		if sorted[i].ID != want {
			t.Fatalf("position %d: got id %d, want %d (full: %v)", i, sorted[i].ID, want, ids(sorted))
		}
	}
	// The input order is untouched.
	if alerts[0].ID != 1 || alerts[4].ID != 5 {
		t.Error("SortAlerts mutated its input")
	}
}

func TestSortAlertsSeverityScenario(t *testing.T) {
	alerts := []model.Alert{
		{ID: 1, Severity: model.SeverityLow},
		{ID: 2, Severity: model.SeverityCritical},
	}
	sorted := SortAlerts(alerts, SortBySeverity)
	if sorted[0].ID != 2 || sorted[1].ID != 1 {
		t.Errorf("expected order [2 1], got %v", ids(sorted))
	}
}

func TestSortAlertsByType(t *testing.T) {
	alerts := []model.Alert{
		{ID: 1, Type: "XSS"},
		{ID: 2, Type: "CSRF"},
		{ID: 3, Type: "SQL Injection"},
	}
	sorted := SortAlerts(alerts, SortByType)
	if got := ids(sorted); got[0] != 2 || got[1] != 3 || got[2] != 1 {
		t.Errorf("expected lexicographic type order [2 3 1], got %v", got)
	}
}

func TestSortAlertsUnknownKeyKeepsOrder(t *testing.T) {
	alerts := []model.Alert{{ID: 3}, {ID: 1}, {ID: 2}}
	sorted := SortAlerts(alerts, "bogus")
	if got := ids(sorted); got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("unknown key must keep input order, got %v", got)
	}
}

func ids(alerts []model.Alert) []int {
	out := make([]int, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestFilterComposition(t *testing.T) {
	day := time.Date(2026, 8, 29, 14, 30, 0, 0, time.Local)
	entries := []model.LogEntry{
		{ID: 1, Type: "request", Severity: model.SeverityLow, Message: "GET /admin panel", Timestamp: day.UnixMilli()},
		{ID: 2, Type: "request", Severity: model.SeverityHigh, Message: "POST /login failed", Timestamp: day.UnixMilli()},
		{ID: 3, Type: "block", Severity: model.SeverityHigh, Message: "blocked ADMIN probe", Timestamp: day.AddDate(0, 0, -1).UnixMilli()},
		{ID: 4, Type: "block", Severity: model.SeverityLow, Message: "blocked scanner", Timestamp: day.UnixMilli()},
	}

	// Empty filter returns the full collection.
	if got := FilterLogs(entries, LogFilter{}); len(got) != len(entries) {
		t.Fatalf("empty filter returned %d of %d entries", len(got), len(entries))
	}

	// Case-insensitive substring on message.
	got := FilterLogs(entries, LogFilter{Search: "admin"})
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("search filter wrong: %v", logIDs(got))
	}

	// All predicates AND together.
	combined := LogFilter{
		Search:   "admin",
		Type:     "block",
		Severity: model.SeverityHigh,
		Day:      "2026-08-28",
	}
	got = FilterLogs(entries, combined)
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("combined filter wrong: %v", logIDs(got))
	}

	// The composed result equals the intersection of the independent ones.
	independent := map[int]int{}
	for _, f := range []LogFilter{
		{Search: combined.Search},
		{Type: combined.Type},
		{Severity: combined.Severity},
		{Day: combined.Day},
	} {
		for _, e := range FilterLogs(entries, f) {
			independent[e.ID]++
		}
	}
	inComposed := map[int]bool{}
	for _, e := range got {
		inComposed[e.ID] = true
		if independent[e.ID] != 4 {
			t.Errorf("entry %d in composed result missed an independent predicate", e.ID)
		}
	}
	for id, hits := range independent {
		if hits == 4 && !inComposed[id] {
			t.Errorf("entry %d passes all predicates but is missing from composed result", id)
		}
	}
}

func logIDs(entries []model.LogEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestPaginateClamp(t *testing.T) {
	cases := []struct {
		name                    string
		total, pageSize, page   int
		wantPage, wantPages     int
		wantStart, wantEnd, len int
	}{
		{"first page full", 25, 10, 1, 1, 3, 0, 10, 10},
		{"middle page", 25, 10, 2, 2, 3, 10, 20, 10},
		{"last partial page", 25, 10, 3, 3, 3, 20, 25, 5},
		{"page zero clamps to one", 25, 10, 0, 1, 3, 0, 10, 10},
		{"past last clamps to last", 25, 10, 9, 3, 3, 20, 25, 5},
		{"negative clamps to one", 25, 10, -2, 1, 3, 0, 10, 10},
		{"empty collection", 0, 10, 5, 1, 1, 0, 0, 0},
		{"exact multiple", 20, 10, 2, 2, 2, 10, 20, 10},
	}
	for _, tc := range cases {
		page, pages, start, end := Paginate(tc.total, tc.pageSize, tc.page)
		if page != tc.wantPage || pages != tc.wantPages || start != tc.wantStart || end != tc.wantEnd {
			t.Errorf("%s: got (page=%d pages=%d start=%d end=%d), want (%d %d %d %d)",
				tc.name, page, pages, start, end, tc.wantPage, tc.wantPages, tc.wantStart, tc.wantEnd)
		}
		if end-start != tc.len {
			t.Errorf("%s: window length %d, want %d", tc.name, end-start, tc.len)
		}
	}
}
