package view

import (
	"math"
	"strings"
)

// Chart cell runes. The fill runes double as the intensity ramp for the
// heatmap, ordered from quiet to hot.
const (
	runeBlank    = ' '
	runeGridline = '·'
	runePoint    = '●'
	runeFill     = '░'
)

var heatRamp = []rune{' ', '░', '▒', '▓', '█'}

// gridlineCount is the number of horizontal reference lines drawn across a
// line chart's plot area.
const gridlineCount = 5

// LineChart renders values as a width×height character plot: horizontal
// gridlines, a point per sample linearly mapped into the plot rectangle, and
// a shaded area underneath. The value domain is [0, max×1.1]; a flat or
// all-zero series renders along the baseline instead of dividing by zero.
// The result is height lines joined by newlines, each exactly width runes.
func LineChart(width, height int, values []int) string {
	if width < 2 || height < 2 {
		return ""
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = make([]rune, width)
		for x := range grid[y] {
			grid[y][x] = runeBlank
		}
	}
	for i := 1; i <= gridlineCount; i++ {
		y := (i*height - 1) / (gridlineCount + 1)
		for x := 0; x < width; x++ {
			grid[y][x] = runeGridline
		}
	}

	if len(values) > 0 {
		maxVal := 0
		for _, v := range values {
			if v > maxVal {
				maxVal = v
			}
		}
		domain := float64(maxVal) * 1.1
		if domain <= 0 {
			domain = 1
		}

		// Column positions for each sample; a single sample sits at x=0.
		xAt := func(i int) int {
			if len(values) == 1 {
				return 0
			}
			return i * (width - 1) / (len(values) - 1)
		}
		yAt := func(v int) int {
			y := height - 1 - int(math.Round(float64(v)/domain*float64(height-1)))
			if y < 0 {
				y = 0
			}
			if y > height-1 {
				y = height - 1
			}
			return y
		}

		prevX, prevY := -1, -1
		for i, v := range values {
			x, y := xAt(i), yAt(v)
			if prevX >= 0 {
				plotSegment(grid, prevX, prevY, x, y)
			}
			grid[y][x] = runePoint
			prevX, prevY = x, y
		}
		for i, v := range values {
			x, top := xAt(i), yAt(v)
			for y := top + 1; y < height; y++ {
				if grid[y][x] == runeBlank || grid[y][x] == runeGridline {
					grid[y][x] = runeFill
				}
			}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}

// plotSegment draws the line between two plotted points, interpolating one
// cell per intermediate column.
func plotSegment(grid [][]rune, x0, y0, x1, y1 int) {
	if x1 == x0 {
		lo, hi := y0, y1
		if lo > hi {
			lo, hi = hi, lo
		}
		for y := lo; y <= hi; y++ {
			if grid[y][x0] == runeBlank || grid[y][x0] == runeGridline {
				grid[y][x0] = runePoint
			}
		}
		return
	}
	for x := x0 + 1; x < x1; x++ {
		y := y0 + (y1-y0)*(x-x0)/(x1-x0)
		if grid[y][x] == runeBlank || grid[y][x] == runeGridline {
			grid[y][x] = runePoint
		}
	}
}

// DonutValue is one category slice of a donut chart, in display order.
type DonutValue struct {
	Label string
	Value int
}

// DonutSegment is one category's arc, angles in radians. Start is inclusive,
// End exclusive; arcs begin at twelve o'clock (-π/2) and proceed clockwise
// in input order.
type DonutSegment struct {
	Label      string
	Value      int
	Start, End float64
	Fraction   float64
}

// donutStart is the twelve o'clock angle where the first arc begins.
const donutStart = -math.Pi / 2

// DonutSegments converts ordered category values into proportional arc
// segments. Zero-valued categories produce zero-width arcs; a total of zero
// yields no segments.
func DonutSegments(values []DonutValue) []DonutSegment {
	total := 0
	for _, v := range values {
		total += v.Value
	}
	if total <= 0 {
		return nil
	}

	segments := make([]DonutSegment, 0, len(values))
	angle := donutStart
	for _, v := range values {
		sweep := 2 * math.Pi * float64(v.Value) / float64(total)
		segments = append(segments, DonutSegment{
			Label:    v.Label,
			Value:    v.Value,
			Start:    angle,
			End:      angle + sweep,
			Fraction: float64(v.Value) / float64(total),
		})
		angle += sweep
	}
	return segments
}

// SegmentAt returns the index of the segment containing angle, wrapping
// across the 0/2π boundary, or -1 when segments is empty or the angle lands
// on no arc (only possible for zero-width arcs).
func SegmentAt(segments []DonutSegment, angle float64) int {
	if len(segments) == 0 {
		return -1
	}
	// Offset from twelve o'clock, normalized into [0, 2π).
	delta := math.Mod(angle-donutStart, 2*math.Pi)
	if delta < 0 {
		delta += 2 * math.Pi
	}
	for i, seg := range segments {
		if delta >= seg.Start-donutStart && delta < seg.End-donutStart {
			return i
		}
	}
	// delta == 2π after float accumulation rounds down; the last non-empty
	// arc owns the boundary.
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].End > segments[i].Start {
			return i
		}
	}
	return -1
}

// HeatRune maps an intensity value to a shade rune relative to the grid
// maximum. A non-positive maximum maps everything to the quiet shade.
func HeatRune(value, max float64) rune {
	if max <= 0 || value <= 0 {
		return heatRamp[0]
	}
	ratio := value / max
	idx := int(ratio * float64(len(heatRamp)-1))
	if ratio >= 1 {
		idx = len(heatRamp) - 1
	}
	if idx < 1 {
		// Any activity at all gets at least the lightest shade.
		idx = 1
	}
	return heatRamp[idx]
}
