// Package chart draws the history card: an SVG bar chart for the web page
// and a PNG export.
package chart

import (
	"math"

	"centsible/internal/history"
)

const (
	DefaultWidth  = 960
	DefaultHeight = history.ChartHeight

	padTop    = 12
	padBottom = 28
	padLeft   = 56
	padRight  = 12
	gridLines = 4
	// barCategoryGap is the horizontal space between two buckets.
	barCategoryGap = 5
	barRadius      = 4
)

// Bar is one rectangle of a series.
type Bar struct {
	X, Y, W, H float64
	Fill       string
	Value      float64
}

// Group is one bucket: its label, its two bars and the tooltip rows shown
// on hover.
type Group struct {
	Label   string
	X, W    float64
	LabelX  float64
	Income  Bar
	Expense Bar
	Tooltip []history.TooltipRow
}

// GridLine is a dashed horizontal line with its y-axis tick text.
type GridLine struct {
	Y    float64
	Text string
}

// Layout is the geometry of one rendered chart.
type Layout struct {
	Width, Height float64
	PlotTop       float64
	PlotBottom    float64
	PlotLeft      float64
	Radius        float64
	Groups        []Group
	Grid          []GridLine
	Legend        []history.LegendItem
	Empty         bool
	EmptyTitle    string
	EmptyHint     string
}

// NewLayout positions c's points in a width x height box. Tick text and
// tooltip rows go through f.
func NewLayout(c history.Chart, width, height int, f history.Formatter) Layout {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	l := Layout{
		Width:      float64(width),
		Height:     float64(height),
		PlotTop:    padTop,
		PlotBottom: float64(height - padBottom),
		PlotLeft:   padLeft,
		Radius:     barRadius,
		Legend:     c.Legend,
		Empty:      c.Empty(),
		EmptyTitle: history.EmptyTitle,
		EmptyHint:  history.EmptyHint,
	}
	if l.Empty {
		return l
	}

	top := niceCeil(c.Max())
	plotH := l.PlotBottom - l.PlotTop
	for i := 0; i <= gridLines; i++ {
		v := top * float64(i) / gridLines
		l.Grid = append(l.Grid, GridLine{
			Y:    l.PlotBottom - plotH*float64(i)/gridLines,
			Text: f.Format(v),
		})
	}

	plotW := l.Width - padLeft - padRight
	slot := plotW / float64(len(c.Points))
	barW := math.Max((slot-barCategoryGap)/2, 1)
	scale := func(v float64) float64 {
		if top == 0 {
			return 0
		}
		return plotH * v / top
	}
	for i, p := range c.Points {
		x := padLeft + slot*float64(i) + barCategoryGap/2.0
		ih, eh := scale(p.Income()), scale(p.Expense())
		pt := p
		l.Groups = append(l.Groups, Group{
			Label:   p.Label,
			X:       padLeft + slot*float64(i),
			W:       slot,
			LabelX:  padLeft + slot*(float64(i)+0.5),
			Income:  Bar{X: x, Y: l.PlotBottom - ih, W: barW, H: ih, Fill: "url(#incomeBar)", Value: p.Income()},
			Expense: Bar{X: x + barW, Y: l.PlotBottom - eh, W: barW, H: eh, Fill: "url(#expenseBar)", Value: p.Expense()},
			Tooltip: history.TooltipFor(&pt, true, f),
		})
	}
	return l
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten so grid
// ticks land on round numbers.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 0
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}
