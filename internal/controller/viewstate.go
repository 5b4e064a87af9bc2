package controller

import (
	"sort"
	"strings"
	"time"

	"github.com/webhydra/console/internal/model"
)

// Alert sort keys. An empty key leaves the collection in canonical order.
const (
	SortByType     = "type"
	SortBySeverity = "severity"
)

// SortAlerts returns a copy of alerts ordered by key. Sorting is stable:
// alerts of equal rank keep their relative order. Unknown keys return the
// input order unchanged.
func SortAlerts(alerts []model.Alert, key string) []model.Alert {
	out := make([]model.Alert, len(alerts))
	copy(out, alerts)
	switch key {
	case SortByType:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	case SortBySeverity:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		})
	}
	return out
}

// LogFilter is the log page's filter set. Zero-valued fields match
// everything; populated fields AND together.
type LogFilter struct {
	// Search matches case-insensitively against the message.
	Search string
	// Type matches the entry type exactly.
	Type string
	// Severity matches the canonical severity exactly.
	Severity model.Severity
	// Day matches entries on the same local calendar day, "2006-01-02".
	Day string
}

// IsZero reports whether no predicate is set.
func (f LogFilter) IsZero() bool {
	return f.Search == "" && f.Type == "" && f.Severity == "" && f.Day == ""
}

// Matches applies all set predicates to one entry.
func (f LogFilter) Matches(e model.LogEntry) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.Search)) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Day != "" {
		day, err := time.ParseInLocation("2006-01-02", f.Day, time.Local)
		if err != nil || !e.Day().Equal(day) {
			return false
		}
	}
	return true
}

// FilterLogs returns the entries matching every set predicate, preserving
// input order. An empty filter returns a copy of the full collection.
func FilterLogs(entries []model.LogEntry, f LogFilter) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Paginate clamps page into [1, ceil(total/pageSize)] (a minimum of one
// page even when total is zero) and returns the clamped page, the page
// count, and the half-open [start, end) index range of the visible window.
func Paginate(total, pageSize, page int) (clamped, totalPages, start, end int) {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages = (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	clamped = page
	if clamped < 1 {
		clamped = 1
	}
	if clamped > totalPages {
		clamped = totalPages
	}
	start = (clamped - 1) * pageSize
	end = start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return clamped, totalPages, start, end
}
