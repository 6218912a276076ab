package history

import (
	"centsible/internal/core"
)

// Series colours.
const (
	IncomeColor  = "#10b981"
	ExpenseColor = "#ef4444"
	BalanceColor = "#f3f4f6"
)

const (
	EmptyTitle = "No data for the selected period"
	EmptyHint  = "Try selecting a different period or adding new transactions"
	// ChartHeight is the fixed height of both the chart and the empty panel.
	ChartHeight = 300
)

// LegendItem is one colour-coded badge above the chart.
type LegendItem struct {
	Label string
	Color string
}

// Legend is shown regardless of data state.
var Legend = []LegendItem{
	{Label: "Income", Color: IncomeColor},
	{Label: "Expense", Color: ExpenseColor},
}

// ChartPoint is one x-axis position: a bucket and its label.
type ChartPoint struct {
	Label  string
	Record core.HistoryRecord
}

func (p ChartPoint) Income() float64  { return p.Record.Income.Float() }
func (p ChartPoint) Expense() float64 { return p.Record.Expense.Float() }
func (p ChartPoint) Balance() float64 { return p.Record.Balance().Float() }

// Chart is everything a front-end needs to draw the history card.
type Chart struct {
	Timeframe core.Timeframe
	Points    []ChartPoint
	Legend    []LegendItem
	Loading   bool
}

// Empty reports whether the empty panel is drawn instead of bars.
func (c Chart) Empty() bool {
	return len(c.Points) == 0
}

// Max returns the tallest bar value, used to scale the y axis.
func (c Chart) Max() float64 {
	var m float64
	for _, p := range c.Points {
		m = max(m, p.Income(), p.Expense())
	}
	return m
}

// BuildChart labels records in server order. They are never re-sorted.
func BuildChart(tf core.Timeframe, records []core.HistoryRecord, loading bool, l Labeler) Chart {
	c := Chart{Timeframe: tf, Legend: Legend, Loading: loading}
	if len(records) == 0 {
		return c
	}
	c.Points = make([]ChartPoint, len(records))
	for i, r := range records {
		c.Points[i] = ChartPoint{Label: l.Label(tf, r), Record: r}
	}
	return c
}
