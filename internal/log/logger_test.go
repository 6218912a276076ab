package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentHistory)
	l.Info("loaded")

	if !strings.Contains(buf.String(), "component=history") {
		t.Fatalf("missing component: %s", buf.String())
	}
	if l.Component() != ComponentHistory {
		t.Fatalf("Component() = %q", l.Component())
	}
	if New(Config{Output: &buf}).Component() != ComponentApp {
		t.Fatal("empty component should default to app")
	}
}

func TestWithKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentHTTP).With("k", "v")
	if l.Component() != ComponentHTTP {
		t.Fatalf("With changed component to %q", l.Component())
	}
	l = l.WithComponent(ComponentCache)
	if l.Component() != ComponentCache {
		t.Fatalf("WithComponent = %q", l.Component())
	}
}

func TestErrorOp(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf, ComponentLedger).ErrorOp(context.Background(), "append failed", OpAppend, errors.New("boom"), "id", 7)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "operation=append", "error=boom", "id=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestWithHistoryQuery(t *testing.T) {
	tests := []struct {
		timeframe string
		wantMonth bool
	}{
		{"month", true},
		{"year", false},
	}
	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			f := NewFields().WithHistoryQuery(tt.timeframe, 2024, 3)
			if _, ok := f[FieldMonth]; ok != tt.wantMonth {
				t.Fatalf("month present = %v, want %v", ok, tt.wantMonth)
			}
			if f[FieldYear] != 2024 {
				t.Fatalf("year = %v", f[FieldYear])
			}
		})
	}
}

func TestWithErrorSkipsNil(t *testing.T) {
	if _, ok := NewFields().WithError(nil)[FieldError]; ok {
		t.Fatal("nil error should not add a field")
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}
	l := Discard()
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected logger stored in context")
	}
}

func TestMiddlewareAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)

	h := Middleware(logger, func(*http.Request) string { return "req_abc" })(
		AccessLog(func(*http.Request) string { return "203.0.113.9" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).Info("inside")
				w.WriteHeader(http.StatusNotFound)
			})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?timeframe=year", nil))

	out := buf.String()
	for _, want := range []string{
		"msg=inside",
		"request_id=req_abc",
		"level=WARN",
		"status_code=404",
		"client_ip=203.0.113.9",
		"path=/api/history",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
