// Package google mirrors transactions into a Google Sheets spreadsheet, one
// "<year> <name>" sheet per year, and reads history back from it.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"centsible/internal/core"
	"centsible/internal/ledger"
)

const DefaultSheetName = "Transactions"

var (
	_ ledger.TransactionWriter = (*Client)(nil)
	_ ledger.HistoryReader     = (*Client)(nil)
	_ ledger.PeriodLister      = (*Client)(nil)
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// Config selects the spreadsheet and service account credentials. When
// both credential fields are empty GOOGLE_APPLICATION_CREDENTIALS is used.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New authenticates with a service account and returns a client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: strings.TrimSpace(sheetName)}
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	file := strings.TrimSpace(cfg.CredentialsFile)
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(cfg.CredentialsJSON), nil
	case file == "":
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	slog.InfoContext(ctx, "Reading service account credentials", "path", file)
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// SheetName returns the sheet holding year's transactions.
func (c *Client) SheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// Append adds tx as a new row of its year's sheet. The returned reference
// is the A1 range written.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := c.SheetName(tx.Date.Year())
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:E", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheet, nil
}

// ReadHistory scans the year's sheet and aggregates it. A year without a
// sheet has no history.
func (c *Client) ReadHistory(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.SheetName(q.Period.Year) + "!A:E"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if isMissingRange(err) {
		return []core.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txs, skipped := parseRows(resp.Values)
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unparseable sheet rows", "range", rng, "skipped", skipped)
	}
	return core.Aggregate(q, txs), nil
}

// Years lists the years that have a transactions sheet.
func (c *Client) Years(ctx context.Context) ([]int, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	var years []int
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		if y, ok := sheetYear(sh.Properties.Title, c.sheetBase); ok {
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return slices.Compact(years), nil
}

func isMissingRange(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(gerr.Message, "Unable to parse range")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if _, ok := leadingYear(base); ok {
		return base
	}
	return fmt.Sprintf("%d %s", year, base)
}

func sheetYear(title, base string) (int, bool) {
	y, ok := leadingYear(title)
	if !ok || !strings.EqualFold(strings.TrimSpace(title[5:]), base) {
		return 0, false
	}
	return y, true
}

func leadingYear(s string) (int, bool) {
	if len(s) < 5 || s[4] != ' ' {
		return 0, false
	}
	y, err := strconv.Atoi(s[0:4])
	if err != nil || y <= 1900 || y >= 3000 {
		return 0, false
	}
	return y, true
}
