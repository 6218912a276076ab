package tui

import (
	"github.com/charmbracelet/lipgloss"

	"centsible/internal/history"
)

var (
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(history.IncomeColor))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(history.ExpenseColor))
	balanceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(history.BalanceColor))

	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(history.ExpenseColor))
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func seriesStyle(label string) lipgloss.Style {
	switch label {
	case "Income":
		return incomeStyle
	case "Expense":
		return expenseStyle
	}
	return balanceStyle
}
