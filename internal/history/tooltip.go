package history

// TooltipRow is one labelled value of the hover tooltip.
type TooltipRow struct {
	Label string
	Color string
	Value float64
	Text  string
}

// TooltipFor returns the Expense, Income and Balance rows for the hovered
// point, or nil when nothing is hovered.
func TooltipFor(point *ChartPoint, active bool, f Formatter) []TooltipRow {
	if !active || point == nil {
		return nil
	}
	rows := []TooltipRow{
		{Label: "Expense", Color: ExpenseColor, Value: point.Expense()},
		{Label: "Income", Color: IncomeColor, Value: point.Income()},
		{Label: "Balance", Color: BalanceColor, Value: point.Balance()},
	}
	for i := range rows {
		rows[i].Text = f.Format(roundTo(rows[i].Value, 0))
	}
	return rows
}
