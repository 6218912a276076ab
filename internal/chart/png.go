package chart

import (
	"errors"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"centsible/internal/history"
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data for the selected period")

const (
	pngBarWidth   = 14
	pngBarSpacing = 3
	pngMinWidth   = 640
)

var (
	incomeFill  = drawing.ColorFromHex(history.IncomeColor[1:])
	expenseFill = drawing.ColorFromHex(history.ExpenseColor[1:])
	axisGray    = drawing.ColorFromHex("888888")
)

// RenderPNG draws c as interleaved income and expense bars. Only the
// income bar of each bucket carries the x label.
func RenderPNG(w io.Writer, c history.Chart, title string) error {
	if c.Empty() {
		return ErrNoData
	}
	bars := make([]gochart.Value, 0, len(c.Points)*2)
	for _, p := range c.Points {
		bars = append(bars,
			gochart.Value{Label: p.Label, Value: p.Income(), Style: barStyle(incomeFill)},
			gochart.Value{Label: " ", Value: p.Expense(), Style: barStyle(expenseFill)},
		)
	}
	top := niceCeil(c.Max())
	if top == 0 {
		top = 1
	}
	width := max(pngMinWidth, len(bars)*(pngBarWidth+pngBarSpacing)+2*padLeft)

	bc := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     DefaultHeight + padBottom + padTop,
		BarWidth:   pngBarWidth,
		BarSpacing: pngBarSpacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.Style{FontSize: 9, FontColor: axisGray},
		YAxis: gochart.YAxis{
			Style: gochart.Style{FontSize: 9, FontColor: axisGray},
			Range: &gochart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}
	if err := bc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

func barStyle(fill drawing.Color) gochart.Style {
	return gochart.Style{
		FillColor:   fill,
		StrokeColor: fill,
		StrokeWidth: 1,
	}
}
