package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"centsible/internal/core"
	"centsible/internal/history"
)

const (
	barFull  = "█"
	barEmpty = " "
)

// bucketWidth is the columns one bucket takes: its two bars plus a gap.
// Monthly buckets get double-width bars and room for a month abbreviation.
func bucketWidth(tf core.Timeframe) int {
	if tf == core.TimeframeYear {
		return 5
	}
	return 3
}

// renderBars draws income and expense bars side by side per bucket, scaled
// to height rows, with the x labels underneath. selected < 0 highlights
// nothing.
func renderBars(c history.Chart, height, selected int) string {
	top := c.Max()
	cells := func(v float64) int {
		if top <= 0 || v <= 0 {
			return 0
		}
		return max(int(math.Round(v/top*float64(height))), 1)
	}
	w := bucketWidth(c.Timeframe)
	barW := (w - 1) / 2

	var b strings.Builder
	for row := height; row >= 1; row-- {
		for _, p := range c.Points {
			b.WriteString(bar(cells(p.Income()) >= row, barW, incomeStyle))
			b.WriteString(bar(cells(p.Expense()) >= row, barW, expenseStyle))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	for i, p := range c.Points {
		label := fit(p.Label, 3, w-1)
		if i == selected {
			label = selectedStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		b.WriteString(label + " ")
	}
	return b.String()
}

func bar(filled bool, width int, style lipgloss.Style) string {
	if !filled {
		return strings.Repeat(barEmpty, width)
	}
	return style.Render(strings.Repeat(barFull, width))
}

// fit keeps at most keep runes of s and pads the result to width.
func fit(s string, keep, width int) string {
	r := []rune(s)
	if len(r) > keep {
		r = r[:keep]
	}
	return string(r) + strings.Repeat(" ", max(width-len(r), 0))
}

// renderEmpty is the empty-state panel, the same height as the chart.
func renderEmpty(width, height int) string {
	body := titleStyle.Render(history.EmptyTitle) + "\n" + mutedStyle.Render(history.EmptyHint)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

// renderSkeleton is the loading placeholder, the same height as the chart.
func renderSkeleton(width, height int) string {
	row := mutedStyle.Render(strings.Repeat("░", max(width-2, 1)))
	rows := make([]string, height)
	for i := range rows {
		rows[i] = row
	}
	rows[height/2] = lipgloss.PlaceHorizontal(width, lipgloss.Center, mutedStyle.Render("Loading history…"))
	return strings.Join(rows, "\n")
}

func renderLegend() string {
	parts := make([]string, len(history.Legend))
	for i, item := range history.Legend {
		parts[i] = seriesStyle(item.Label).Render(barFull) + " " + item.Label
	}
	return strings.Join(parts, "   ")
}
