package chart

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"centsible/internal/history"
)

//go:embed svg.tmpl
var svgSource string

var svgTemplate = template.Must(template.New("chart").Funcs(template.FuncMap{
	"px":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"add": func(a, b float64) float64 { return a + b },
	"sub": func(a, b float64) float64 { return a - b },
}).Parse(svgSource))

// Colors exposed to the SVG gradients.
type svgData struct {
	Layout
	IncomeColor  string
	ExpenseColor string
	BalanceColor string
}

// RenderSVG writes the chart for l. Empty layouts render nothing; callers
// show the empty panel instead.
func RenderSVG(w io.Writer, l Layout) error {
	if l.Empty {
		return nil
	}
	return svgTemplate.Execute(w, svgData{
		Layout:       l,
		IncomeColor:  history.IncomeColor,
		ExpenseColor: history.ExpenseColor,
		BalanceColor: history.BalanceColor,
	})
}

// SVG renders l into a string safe to embed in a page.
func SVG(l Layout) (template.HTML, error) {
	var buf bytes.Buffer
	if err := RenderSVG(&buf, l); err != nil {
		return "", fmt.Errorf("render svg: %w", err)
	}
	return template.HTML(buf.String()), nil
}
