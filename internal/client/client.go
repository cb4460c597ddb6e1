package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/kjstillabower/weather-history-tool/internal/observability"
)

// DefaultHistoryURL is the OpenWeatherMap city history endpoint.
const DefaultHistoryURL = "http://api.openweathermap.org/data/2.5/history/city"

// HistoryType is the only granularity requested from the history endpoint.
const HistoryType = "hour"

// HistoryQuery identifies a location and a Unix-seconds time range.
type HistoryQuery struct {
	Lat   float64
	Lon   float64
	Start int64
	End   int64
}

// HistoryFetcher returns the upstream history body for a query.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, q HistoryQuery) (json.RawMessage, error)
}

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrInvalidJSON     = errors.New("invalid JSON body")
)

// UpstreamError is a non-2xx response whose body was valid JSON.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("history API HTTP %d: %s", e.StatusCode, string(e.Body))
}

// Unwrap maps the status onto the package sentinels so callers can use errors.Is.
func (e *UpstreamError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstreamFailure
	}
}

// HistoryClient calls the history endpoint once per query. It holds no
// per-call state and is safe for concurrent use.
type HistoryClient struct {
	apiKey  string
	apiURL  *url.URL
	timeout time.Duration
	client  *http.Client
}

// NewHistoryClient returns a client for apiURL. An empty apiKey is accepted and
// sent as-is; the upstream rejects it. A zero timeout disables the per-call deadline.
func NewHistoryClient(apiKey, apiURL string, timeout time.Duration) (*HistoryClient, error) {
	if apiURL == "" {
		apiURL = DefaultHistoryURL
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: scheme and host required", apiURL)
	}

	return &HistoryClient{
		apiKey:  apiKey,
		apiURL:  u,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetHistory performs a single GET and returns the body unmodified when the
// status is 2xx. Non-2xx statuses yield *UpstreamError.
func (c *HistoryClient) GetHistory(ctx context.Context, q HistoryQuery) (json.RawMessage, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.buildRequest(ctx, q)
	if err != nil {
		observability.HistoryAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.HistoryAPICallsTotal.WithLabelValues("error").Inc()
		observability.HistoryAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.HistoryAPICallsTotal.WithLabelValues(status).Inc()
	observability.HistoryAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	body = bytes.TrimSpace(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if !validJSON(body) {
			return nil, fmt.Errorf("parse error body (HTTP %d): %w", resp.StatusCode, ErrInvalidJSON)
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: json.RawMessage(body)}
	}

	if !validJSON(body) {
		return nil, fmt.Errorf("parse response: %w", ErrInvalidJSON)
	}
	return json.RawMessage(body), nil
}

// validJSON also requires UTF-8, which json.Valid does not check inside strings.
func validJSON(body []byte) bool {
	return utf8.Valid(body) && json.Valid(body)
}

func (c *HistoryClient) buildRequest(ctx context.Context, q HistoryQuery) (*http.Request, error) {
	u := *c.apiURL
	u.RawQuery = QueryParams(q, c.apiKey).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if corrID := CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

// QueryParams returns exactly the six history parameters for q.
func QueryParams(q HistoryQuery, apiKey string) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	params.Set("type", HistoryType)
	params.Set("start", strconv.FormatInt(q.Start, 10))
	params.Set("end", strconv.FormatInt(q.End, 10))
	params.Set("appid", apiKey)
	return params
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
