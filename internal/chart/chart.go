// Package chart provides sparkline rendering with colors graded by position
// in the visible range, minute tick marks, timeline labels, and scale bars.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/sensorapp/internal/history"
)

var sparkBlocks = []rune{'\u2581', '\u2582', '\u2583', '\u2584', '\u2585', '\u2586', '\u2587', '\u2588'}

// LevelColor returns the color for a value by its position in the range:
// cool at the bottom, hot at the top.
func LevelColor(v, rangeMin, rangeMax float64) lipgloss.Color {
	span := rangeMax - rangeMin
	if span <= 0 {
		return lipgloss.Color("78")
	}
	norm := (v - rangeMin) / span
	switch {
	case norm >= 0.9:
		return lipgloss.Color("208") // orange
	case norm >= 0.7:
		return lipgloss.Color("220") // yellow
	case norm <= 0.1:
		return lipgloss.Color("75") // blue
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparkline renders a sparkline chart without timestamp ticks.
func RenderSparkline(values []float64, width int, rangeMin, rangeMax float64) string {
	if width <= 0 {
		return ""
	}
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Value: v}
	}
	return RenderSparklinePoints(pts, width, rangeMin, rangeMax)
}

// RenderSparklinePoints renders a sparkline with minute tick marks on the
// timeline. A subtle pipe is drawn at each minute boundary.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax float64) string {
	if width <= 0 {
		return ""
	}

	if len(points) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
		return dim.Render(strings.Repeat("\u254C", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("\u254C"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		norm := (p.Value - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))

		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		isMinuteTick := false
		if !p.Time.IsZero() {
			if p.Time.Second() == 0 {
				isMinuteTick = true
			} else if i > 0 && !points[i-1].Time.IsZero() {
				if p.Time.Minute() != points[i-1].Time.Minute() {
					isMinuteTick = true
				}
			}
		}

		if isMinuteTick {
			sb.WriteString(tickStyle.Render("\u2502"))
		} else {
			ch := string(sparkBlocks[idx])
			style := lipgloss.NewStyle().Foreground(LevelColor(p.Value, rangeMin, rangeMax))
			sb.WriteString(style.Render(ch))
		}
	}

	return sb.String()
}

// RenderTimeline renders the time labels under the sparkline, showing
// HH:MM at each minute tick position.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if p.Time.IsZero() {
			continue
		}
		isMinuteTick := false
		if p.Time.Second() == 0 {
			isMinuteTick = true
		} else if i > 0 && !points[i-1].Time.IsZero() {
			if p.Time.Minute() != points[i-1].Time.Minute() {
				isMinuteTick = true
			}
		}
		if isMinuteTick {
			pos := padLen + i
			label := p.Time.Format("15:04")
			ticks = append(ticks, tick{pos: pos, label: label})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	result := string(line)
	return tickStyle.Render(result)
}

// RenderScale renders a scale bar with a marker at the current value and
// ticks at the session low and peak.
func RenderScale(current, lo, peak, rangeMin, rangeMax float64, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		p := int(float64(width-1) * (v - rangeMin) / span)
		if p < 0 {
			return 0
		}
		if p >= width {
			return width - 1
		}
		return p
	}

	curPos, loPos, peakPos := pos(current), pos(lo), pos(peak)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	mark := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(LevelColor(current, rangeMin, rangeMax)).Bold(true)
			sb.WriteString(style.Render("\u25C6"))
		case loPos, peakPos:
			sb.WriteString(mark.Render("\u25AA"))
		default:
			sb.WriteString(dim.Render("\u00B7"))
		}
	}

	return sb.String()
}

// RenderValue renders a value with its unit, colored by its position in
// the range.
func RenderValue(v float64, unit string, rangeMin, rangeMax float64) string {
	s := fmt.Sprintf("%9.3f", v)
	if unit != "" {
		s += " " + unit
	}
	return lipgloss.NewStyle().Foreground(LevelColor(v, rangeMin, rangeMax)).Render(s)
}
