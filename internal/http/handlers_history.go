package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"centsible/internal/chart"
	"centsible/internal/core"
	"centsible/internal/history"
	applog "centsible/internal/log"
)

const ChartPNGPath = "/api/history/chart.png"

// selection reads the history query from v. Without timeframe and year it
// is the current month.
func (s *Server) selection(v url.Values) (core.HistoryQuery, error) {
	if v.Get("timeframe") == "" && v.Get("year") == "" {
		return core.HistoryQuery{Timeframe: core.TimeframeMonth, Period: core.CurrentPeriod(s.now())}, nil
	}
	return history.ParseQuery(v)
}

func (s *Server) readHistory(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	records, err := s.history.ReadHistory(ctx, q)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.HistoryRecord{}
	}
	return records, nil
}

func queryLogger(ctx context.Context, q core.HistoryQuery) *applog.Logger {
	return applog.FromContext(ctx).WithFields(applog.NewFields().
		WithHistoryQuery(q.Timeframe.String(), q.Period.Year, q.Period.Month))
}

// handleHistoryAPI answers GET /api/history with the buckets of one period
// in chronological order.
func (s *Server) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q, err := history.ParseQuery(r.URL.Query())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	records, err := s.readHistory(r.Context(), q)
	if err != nil {
		queryLogger(r.Context(), q).ErrorOp(r.Context(), "History read failed", applog.OpRead, err)
		JSONError(http.StatusInternalServerError, "could not read history").Write(w)
		return
	}
	NewHTMXResponse().Header("Cache-Control", "no-store").BodyJSON(records).Write(w)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	years, err := s.periods.Years(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorOp(ctx, "Period listing failed", applog.OpList, err)
		JSONError(http.StatusInternalServerError, "could not list periods").Write(w)
		return
	}
	if years == nil {
		years = []int{}
	}
	NewHTMXResponse().Header("Cache-Control", "no-store").BodyJSON(map[string][]int{"years": years}).Write(w)
}

// handleChartPNG exports the selected period as a PNG. A period without
// buckets answers 204.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q, err := history.ParseQuery(r.URL.Query())
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	records, err := s.readHistory(r.Context(), q)
	if err != nil {
		queryLogger(r.Context(), q).ErrorOp(r.Context(), "History read failed", applog.OpRead, err)
		JSONError(http.StatusInternalServerError, "could not read history").Write(w)
		return
	}

	var buf bytes.Buffer
	err = chart.RenderPNG(&buf, history.BuildChart(q.Timeframe, records, false, s.labeler), s.labeler.Title(q))
	if errors.Is(err, chart.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		queryLogger(r.Context(), q).ErrorOp(r.Context(), "Chart rendering failed", applog.OpRender, err)
		JSONError(http.StatusInternalServerError, "could not render chart").Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", `inline; filename="history-`+q.Key()+`.png"`)
	_, _ = w.Write(buf.Bytes())
}

type historyPageData struct {
	Username   string
	PartialURL string
	Today      string
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q, err := s.selection(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sess, _ := sessionFrom(r.Context())
	data := historyPageData{
		Username:   sess.Username,
		PartialURL: partialURL(q),
		Today:      s.now().Format("2006-01-02"),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorOp(r.Context(), "History page template execution failed", applog.OpRender, err)
	}
}

// historyPartialData feeds the history_partial template.
type historyPartialData struct {
	Title       string
	Timeframe   string
	Height      int
	MonthURL    string
	YearURL     string
	PrevURL     string
	NextURL     string
	SelfURL     string
	PNGURL      string
	Legend      []history.LegendItem
	Chart       template.HTML
	Totals      []history.TooltipRow
	Empty       bool
	EmptyTitle  string
	EmptyHint   string
	Failed      bool
	FailMessage string
}

// handleHistoryPartial renders the history card for htmx. Backend failures
// render a failure panel so the card still swaps.
func (s *Server) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q, err := s.selection(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	withTF := func(tf core.Timeframe) core.HistoryQuery {
		return core.HistoryQuery{Timeframe: tf, Period: q.Period}
	}
	shift := func(p core.Period) core.HistoryQuery {
		return core.HistoryQuery{Timeframe: q.Timeframe, Period: p}
	}
	data := historyPartialData{
		Title:      s.labeler.Title(q),
		Timeframe:  q.Timeframe.String(),
		Height:     history.ChartHeight,
		MonthURL:   partialURL(withTF(core.TimeframeMonth)),
		YearURL:    partialURL(withTF(core.TimeframeYear)),
		PrevURL:    partialURL(shift(q.Period.Prev(q.Timeframe))),
		NextURL:    partialURL(shift(q.Period.Next(q.Timeframe))),
		SelfURL:    partialURL(q),
		PNGURL:     ChartPNGPath + "?" + history.Values(q).Encode(),
		Legend:     history.Legend,
		EmptyTitle: history.EmptyTitle,
		EmptyHint:  history.EmptyHint,
	}

	records, err := s.readHistory(r.Context(), q)
	if err != nil {
		queryLogger(r.Context(), q).ErrorOp(r.Context(), "Failed to fetch history data", applog.OpRead, err)
		data.Failed = true
		data.FailMessage = "Could not load history. Try again in a moment."
		s.renderPartial(w, r, data)
		return
	}

	c := history.BuildChart(q.Timeframe, records, false, s.labeler)
	data.Empty = c.Empty()
	if !data.Empty {
		data.Chart, err = chart.SVG(chart.NewLayout(c, chart.DefaultWidth, history.ChartHeight, s.formatter))
		if err != nil {
			queryLogger(r.Context(), q).ErrorOp(r.Context(), "Chart rendering failed", applog.OpRender, err)
			data.Failed = true
			data.FailMessage = "Could not draw the chart."
		}
		total := totals(records)
		data.Totals = history.TooltipFor(&history.ChartPoint{Label: data.Title, Record: total}, true, s.formatter)
	}
	s.renderPartial(w, r, data)
}

func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, data historyPartialData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "history_partial.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorOp(r.Context(), "History partial template execution failed", applog.OpRender, err)
	}
}

// totals folds every bucket into one record.
func totals(records []core.HistoryRecord) core.HistoryRecord {
	var t core.HistoryRecord
	for _, r := range records {
		t.Income = t.Income.Add(r.Income)
		t.Expense = t.Expense.Add(r.Expense)
	}
	return t
}

func partialURL(q core.HistoryQuery) string {
	return "/ui/history?" + history.Values(q).Encode()
}
