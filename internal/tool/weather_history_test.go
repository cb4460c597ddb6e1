package tool

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-history-tool/internal/client"
)

const sentinelJSON = `{"error":"An error occurred while accessing weather history."}`

func newTestTool(t *testing.T, handler http.HandlerFunc) (*WeatherHistoryTool, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.NewHistoryClient("test-api-key", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewHistoryClient() error = %v", err)
	}
	core, logs := observer.New(zap.DebugLevel)
	return NewWeatherHistoryTool(c, zap.New(core)), logs
}

func mustMarshal(t *testing.T, r Result) string {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal(Result) error = %v", err)
	}
	return string(b)
}

// TestWeatherHistoryTool_Execute_PassesPayloadThrough verifies a 200 response is
// returned verbatim.
func TestWeatherHistoryTool_Execute_PassesPayloadThrough(t *testing.T) {
	tool, logs := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list":[]}`))
	})

	res := tool.Execute(context.Background(), HistoryRequest{Lat: 35, Lon: 139, Start: 1609459200, End: 1609545600})

	if !res.OK() {
		t.Fatalf("Execute() OK = false, err = %q", res.Err())
	}
	if got := mustMarshal(t, res); got != `{"list":[]}` {
		t.Errorf("Execute() = %s, want {\"list\":[]}", got)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log lines on success, got %d", logs.Len())
	}
}

func TestWeatherHistoryTool_Execute_UpstreamErrorYieldsSentinel(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantCategory string
	}{
		{"401 invalid key", http.StatusUnauthorized, `{"message":"Invalid API key"}`, "invalid_api_key"},
		{"400 bad request", http.StatusBadRequest, `{"cod":"400","message":"end must be after start"}`, "upstream_4xx"},
		{"429 limited", http.StatusTooManyRequests, `{"cod":429}`, "rate_limited"},
		{"500 server error", http.StatusInternalServerError, `{}`, "upstream_5xx"},
		{"503 non-json body", http.StatusServiceUnavailable, `Service Unavailable`, "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, logs := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res := tool.Execute(context.Background(), HistoryRequest{Lat: 35, Lon: 139, Start: 1609459200, End: 1609545600})

			if res.OK() {
				t.Fatal("Execute() OK = true, want error descriptor")
			}
			if res.Err() != WeatherHistoryErrorMessage {
				t.Errorf("Err() = %q, want %q", res.Err(), WeatherHistoryErrorMessage)
			}
			if got := mustMarshal(t, res); got != sentinelJSON {
				t.Errorf("Execute() = %s, want %s", got, sentinelJSON)
			}

			entries := logs.FilterMessage("error accessing weather history").All()
			if len(entries) != 1 {
				t.Fatalf("expected exactly one failure log line, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["category"] != tt.wantCategory {
				t.Errorf("category = %v, want %s", fields["category"], tt.wantCategory)
			}
			if fields["tool"] != WeatherHistoryName {
				t.Errorf("tool = %v, want %s", fields["tool"], WeatherHistoryName)
			}
		})
	}
}

func TestWeatherHistoryTool_Execute_LogsStatusAndBody(t *testing.T) {
	tool, logs := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	ctx := client.WithCorrelationID(context.Background(), "corr-1")
	_ = tool.Execute(ctx, HistoryRequest{})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status_code"] != int64(401) {
		t.Errorf("status_code = %v (%T), want 401", fields["status_code"], fields["status_code"])
	}
	if fields["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", fields["correlation_id"])
	}
	errText, _ := fields["error"].(string)
	if errText != `history API HTTP 401: {"message":"Invalid API key"}` {
		t.Errorf("error = %q, want upstream body in message", errText)
	}
}

func TestWeatherHistoryTool_Execute_NetworkFailureYieldsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c, err := client.NewHistoryClient("test-api-key", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("NewHistoryClient() error = %v", err)
	}
	core, logs := observer.New(zap.DebugLevel)
	tool := NewWeatherHistoryTool(c, zap.New(core))

	res := tool.Execute(context.Background(), HistoryRequest{Lat: 35, Lon: 139, Start: 1609459200, End: 1609545600})
	if got := mustMarshal(t, res); got != sentinelJSON {
		t.Errorf("Execute() = %s, want %s", got, sentinelJSON)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one log line, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["category"]; got != "network" {
		t.Errorf("category = %v, want network", got)
	}
}

func TestWeatherHistoryTool_Execute_InvalidJSONYieldsSentinel(t *testing.T) {
	tool, _ := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list":[`))
	})

	res := tool.Execute(context.Background(), HistoryRequest{})
	if res.OK() || res.Err() != WeatherHistoryErrorMessage {
		t.Errorf("Execute() = %+v, want error descriptor", res)
	}
}

type panicFetcher struct{}

func (panicFetcher) GetHistory(context.Context, client.HistoryQuery) (json.RawMessage, error) {
	panic("boom")
}

func TestWeatherHistoryTool_Execute_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tool := NewWeatherHistoryTool(panicFetcher{}, zap.New(core))

	res := tool.Execute(context.Background(), HistoryRequest{})
	if res.Err() != WeatherHistoryErrorMessage {
		t.Errorf("Err() = %q, want sentinel", res.Err())
	}
	if logs.Len() != 1 {
		t.Errorf("expected one log line, got %d", logs.Len())
	}
}

func TestWeatherHistoryTool_Call(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantQuery map[string]string
		wantOK    bool
	}{
		{
			name:      "all fields",
			args:      `{"lat":35,"lon":139,"start":1609459200,"end":1609545600}`,
			wantQuery: map[string]string{"lat": "35", "lon": "139", "start": "1609459200", "end": "1609545600", "type": "hour"},
			wantOK:    true,
		},
		{
			name:      "float timestamps are truncated",
			args:      `{"lat":-33.8688,"lon":151.2093,"start":1.6094592e9,"end":1609545600.7}`,
			wantQuery: map[string]string{"lat": "-33.8688", "lon": "151.2093", "start": "1609459200", "end": "1609545600"},
			wantOK:    true,
		},
		{
			name:      "missing fields still send a request",
			args:      `{"lon":139}`,
			wantQuery: map[string]string{"lat": "0", "lon": "139", "start": "0", "end": "0", "type": "hour"},
			wantOK:    true,
		},
		{
			name:      "empty arguments",
			args:      ``,
			wantQuery: map[string]string{"lat": "0", "lon": "0"},
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query map[string][]string
			tool, _ := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				_, _ = w.Write([]byte(`{"cnt":0,"list":[]}`))
			})

			res := tool.Call(context.Background(), json.RawMessage(tt.args))
			if res.OK() != tt.wantOK {
				t.Fatalf("Call() OK = %v, want %v (err %q)", res.OK(), tt.wantOK, res.Err())
			}
			for k, v := range tt.wantQuery {
				if got := query[k]; len(got) != 1 || got[0] != v {
					t.Errorf("query[%q] = %v, want [%q]", k, got, v)
				}
			}
		})
	}
}

func TestWeatherHistoryTool_Call_UndecodableArguments(t *testing.T) {
	called := false
	tool, logs := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{}`))
	})

	res := tool.Call(context.Background(), json.RawMessage(`{"lat":"thirty-five"}`))
	if res.Err() != WeatherHistoryErrorMessage {
		t.Errorf("Err() = %q, want sentinel", res.Err())
	}
	if called {
		t.Error("upstream should not be called when arguments cannot be decoded")
	}
	if got := logs.All()[0].ContextMap()["category"]; got != "invalid_arguments" {
		t.Errorf("category = %v, want invalid_arguments", got)
	}
}

// TestWeatherHistoryTool_Call_TimestampOutOfRange verifies timestamps that do
// not fit in int64 are rejected instead of wrapping to a different instant.
func TestWeatherHistoryTool_Call_TimestampOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"start above int64", `{"lat":35,"lon":139,"start":1e20,"end":1609545600}`},
		{"end below int64", `{"lat":35,"lon":139,"start":1609459200,"end":-1e19}`},
		{"start at 2^63", `{"start":9223372036854775808}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			called := false
			tool, logs := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				called = true
				mu.Unlock()
				_, _ = w.Write([]byte(`{}`))
			})

			res := tool.Call(context.Background(), json.RawMessage(tt.args))
			if res.OK() {
				t.Fatal("Call() OK = true, want error descriptor")
			}
			if got := mustMarshal(t, res); got != sentinelJSON {
				t.Errorf("Call() = %s, want %s", got, sentinelJSON)
			}
			mu.Lock()
			defer mu.Unlock()
			if called {
				t.Error("upstream should not be called for out-of-range timestamps")
			}
			if logs.Len() != 1 {
				t.Fatalf("expected one log line, got %d", logs.Len())
			}
			if got := logs.All()[0].ContextMap()["category"]; got != "invalid_arguments" {
				t.Errorf("category = %v, want invalid_arguments", got)
			}
		})
	}
}

func TestHistoryRequest_UnmarshalJSON_Bounds(t *testing.T) {
	var req HistoryRequest
	if err := json.Unmarshal([]byte(`{"start":-9223372036854775808,"end":9.2e18}`), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Start != math.MinInt64 {
		t.Errorf("Start = %d, want %d", req.Start, int64(math.MinInt64))
	}
	if req.End != 9200000000000000000 {
		t.Errorf("End = %d, want 9200000000000000000", req.End)
	}
}

// TestWeatherHistoryTool_ConcurrentCalls verifies independent invocations do not
// interfere with each other.
func TestWeatherHistoryTool_ConcurrentCalls(t *testing.T) {
	tool, _ := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lat":` + r.URL.Query().Get("lat") + `}`))
	})

	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(lat int) {
			defer wg.Done()
			res := tool.Execute(context.Background(), HistoryRequest{Lat: float64(lat)})
			var got struct {
				Lat int `json:"lat"`
			}
			if err := json.Unmarshal(res.Payload(), &got); err != nil || got.Lat != lat {
				errs <- res.Err()
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent call returned wrong payload (err %q)", e)
	}
}

func TestWeatherHistoryTool_Descriptor(t *testing.T) {
	tool := NewWeatherHistoryTool(panicFetcher{}, nil)
	d := tool.Descriptor()

	if d.Name != "get_weather_history" {
		t.Errorf("Name = %q, want get_weather_history", d.Name)
	}
	if d.Description != "Access historical weather data for a specific location." {
		t.Errorf("Description = %q", d.Description)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, field := range []string{"lat", "lon", "start", "end"} {
		p, ok := d.Parameters.Properties[field]
		if !ok {
			t.Errorf("missing property %q", field)
			continue
		}
		if p.Type != "number" {
			t.Errorf("property %q type = %q, want number", field, p.Type)
		}
	}
	if len(d.Parameters.Required) != 4 {
		t.Errorf("Required = %v, want 4 fields", d.Parameters.Required)
	}

	// Mutating the returned copy must not leak into later calls.
	d.Parameters.Properties["lat"] = Property{Type: "string"}
	d.Parameters.Required[0] = "changed"
	again := tool.Descriptor()
	if again.Parameters.Properties["lat"].Type != "number" || again.Parameters.Required[0] != "lat" {
		t.Error("Descriptor() returned shared state")
	}
}
