package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"centsible/internal/core"
)

const (
	HistoryPath = "/api/history"
	PeriodsPath = "/api/history/periods"
	SignInAPI   = "/api/signin"
	SignOutAPI  = "/api/signout"
	// SignInPath is where the user is sent when the session is missing.
	SignInPath = "/signin"
)

// ErrUnauthorized is returned when the server answers 401.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is any other non-2xx answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Fetcher loads history buckets for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error)

func (f FetcherFunc) Fetch(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	return f(ctx, q)
}

// Client talks to the history API. Requests carry the session cookie kept
// in its cookie jar.
type Client struct {
	base *url.URL
	http *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a
// jar gets one.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch issues GET /api/history for q.
func (c *Client) Fetch(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	var records []core.HistoryRecord
	if err := c.getJSON(ctx, c.endpoint(HistoryPath, Values(q)), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.HistoryRecord{}
	}
	return records, nil
}

// Periods returns the years that have at least one transaction.
func (c *Client) Periods(ctx context.Context) ([]int, error) {
	var body struct {
		Years []int `json:"years"`
	}
	if err := c.getJSON(ctx, c.endpoint(PeriodsPath, nil), &body); err != nil {
		return nil, err
	}
	return body.Years, nil
}

// SignIn posts credentials; on success the session cookie lands in the jar.
func (c *Client) SignIn(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	return c.postForm(ctx, SignInAPI, form)
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.postForm(ctx, SignOutAPI, url.Values{})
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
