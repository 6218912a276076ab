package http

import (
	"net/http"
	"strings"
	"time"

	"centsible/internal/core"
)

// backendTimeout bounds every backend call a handler makes.
const backendTimeout = 7 * time.Second

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

// sanitizeInput trims and drops control characters other than tab, CR and LF.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the caller is an API client rather than a page.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
