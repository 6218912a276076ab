package google

import (
	"fmt"
	"strings"
	"time"

	"centsible/internal/core"
)

// Sheet columns: A date (YYYY-MM-DD), B kind, C description, D amount,
// E category.
func formatRow(tx core.Transaction) []any {
	return []any{
		tx.Date.Format(time.DateOnly),
		string(tx.Kind),
		tx.Description,
		tx.Amount.Decimal().InexactFloat64(),
		tx.Category,
	}
}

// parseRows converts a values matrix into transactions. A header row and
// blank rows are ignored; other rows that do not parse are counted in
// skipped.
func parseRows(values [][]interface{}) (txs []core.Transaction, skipped int) {
	for i, row := range values {
		cols := toStrings(row)
		if isBlank(cols) {
			continue
		}
		tx, err := parseRow(cols)
		if err != nil {
			if i == 0 {
				continue
			}
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

func parseRow(cols []string) (core.Transaction, error) {
	if len(cols) < 4 {
		return core.Transaction{}, fmt.Errorf("expected at least 4 columns, got %d", len(cols))
	}
	d, err := parseDate(cols[0])
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(cols[1])
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(strings.TrimSpace(cols[3]), "€"))
	if err != nil {
		return core.Transaction{}, err
	}
	category := "Uncategorized"
	if len(cols) > 4 && cols[4] != "" {
		category = cols[4]
	}
	return core.Transaction{
		Date:        core.Date{Time: d},
		Kind:        kind,
		Description: cols[2],
		Amount:      core.Money{Cents: cents},
		Category:    category,
	}, nil
}

// parseDate accepts ISO dates and the day-first form Sheets shows in
// European locales.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
