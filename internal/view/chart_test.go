package view

import (
	"math"
	"strings"
	"testing"
)

func TestLineChartDimensions(t *testing.T) {
	chart := LineChart(60, 10, []int{1, 5, 3, 9, 2})
	lines := strings.Split(chart, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(lines))
	}
	for i, line := range lines {
		if n := len([]rune(line)); n != 60 {
			t.Errorf("row %d: expected 60 runes, got %d", i, n)
		}
	}
}

func TestLineChartGridlineCount(t *testing.T) {
	chart := LineChart(40, 12, nil)
	gridRows := 0
	for _, line := range strings.Split(chart, "\n") {
		if strings.ContainsRune(line, runeGridline) {
			gridRows++
		}
	}
	if gridRows != gridlineCount {
		t.Errorf("expected %d gridline rows, got %d", gridlineCount, gridRows)
	}
}

func TestLineChartFlatSeriesStaysOnBaseline(t *testing.T) {
	// An all-zero series must not divide by zero; every point lands on the
	// bottom row.
	chart := LineChart(30, 8, []int{0, 0, 0, 0})
	lines := strings.Split(chart, "\n")
	for i, line := range lines[:len(lines)-1] {
		if strings.ContainsRune(line, runePoint) {
			t.Errorf("row %d holds a point for a zero series", i)
		}
	}
	if !strings.ContainsRune(lines[len(lines)-1], runePoint) {
		t.Error("bottom row holds no points for a zero series")
	}
}

func TestLineChartPeakNeverTouchesTop(t *testing.T) {
	// The 1.1 headroom keeps the maximum below the top row.
	chart := LineChart(30, 8, []int{1, 10, 1})
	top := strings.Split(chart, "\n")[0]
	if strings.ContainsRune(top, runePoint) {
		t.Error("peak reached the top row despite domain headroom")
	}
}

func TestDonutSegmentsProportions(t *testing.T) {
	segments := DonutSegments([]DonutValue{
		{Label: "SQLi", Value: 3},
		{Label: "XSS", Value: 1},
	})
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Start != donutStart {
		t.Errorf("first arc must start at twelve o'clock, got %v", segments[0].Start)
	}
	if got := segments[0].Fraction; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("expected 0.75 fraction, got %v", got)
	}
	sweep := segments[1].End - segments[0].Start
	if math.Abs(sweep-2*math.Pi) > 1e-9 {
		t.Errorf("arcs must cover the full circle, total sweep %v", sweep)
	}
}

func TestDonutSegmentsEmptyTotal(t *testing.T) {
	if got := DonutSegments([]DonutValue{{Label: "SQLi", Value: 0}}); got != nil {
		t.Errorf("zero total must yield no segments, got %#v", got)
	}
}

func TestSegmentAtWrapsBoundary(t *testing.T) {
	segments := DonutSegments([]DonutValue{
		{Label: "A", Value: 1},
		{Label: "B", Value: 1},
	})

	cases := []struct {
		name  string
		angle float64
		want  int
	}{
		{"just after start", donutStart + 0.01, 0},
		{"half turn", donutStart + math.Pi + 0.01, 1},
		{"negative equivalent", donutStart + 0.01 - 2*math.Pi, 0},
		{"wrapped past full turn", donutStart + 0.01 + 2*math.Pi, 0},
		{"just before start wraps to last", donutStart - 0.01, 1},
	}
	for _, tc := range cases {
		if got := SegmentAt(segments, tc.angle); got != tc.want {
			t.Errorf("%s: angle %v hit segment %d, want %d", tc.name, tc.angle, got, tc.want)
		}
	}
}

func TestSegmentAtEmpty(t *testing.T) {
	if got := SegmentAt(nil, 0); got != -1 {
		t.Errorf("expected -1 for no segments, got %d", got)
	}
}

func TestHeatRuneRamp(t *testing.T) {
	if got := HeatRune(0, 10); got != ' ' {
		t.Errorf("zero intensity must be blank, got %q", got)
	}
	if got := HeatRune(10, 10); got != '█' {
		t.Errorf("max intensity must be full shade, got %q", got)
	}
	if got := HeatRune(0.1, 10); got == ' ' {
		t.Error("a non-zero value must render at least the lightest shade")
	}
	if got := HeatRune(5, 0); got != ' ' {
		t.Errorf("zero max must render blank, got %q", got)
	}
}
