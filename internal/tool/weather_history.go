package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-history-tool/internal/client"
	"github.com/kjstillabower/weather-history-tool/internal/observability"
)

// WeatherHistoryName is the callable name of the weather history tool.
const WeatherHistoryName = "get_weather_history"

// WeatherHistoryErrorMessage is the only failure text callers ever see.
const WeatherHistoryErrorMessage = "An error occurred while accessing weather history."

var weatherHistoryDescriptor = Descriptor{
	Name:        WeatherHistoryName,
	Description: "Access historical weather data for a specific location.",
	Parameters: Schema{
		Type: "object",
		Properties: map[string]Property{
			"lat":   {Type: "number", Description: "The latitude of the location."},
			"lon":   {Type: "number", Description: "The longitude of the location."},
			"start": {Type: "number", Description: "The start time for the historical data (Unix timestamp)."},
			"end":   {Type: "number", Description: "The end time for the historical data (Unix timestamp)."},
		},
		Required: []string{"lat", "lon", "start", "end"},
	},
}

// HistoryRequest holds the tool arguments. Missing fields decode to zero.
type HistoryRequest struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Start int64   `json:"start"`
	End   int64   `json:"end"`
}

// UnmarshalJSON accepts start/end as any JSON number (1609459200, 1.6094592e9)
// and truncates to whole seconds. Numbers beyond the int64 range are an error.
func (r *HistoryRequest) UnmarshalJSON(data []byte) error {
	var aux struct {
		Lat   *float64 `json:"lat"`
		Lon   *float64 `json:"lon"`
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = HistoryRequest{}
	if aux.Lat != nil {
		r.Lat = *aux.Lat
	}
	if aux.Lon != nil {
		r.Lon = *aux.Lon
	}
	var err error
	if aux.Start != nil {
		if r.Start, err = unixSeconds("start", *aux.Start); err != nil {
			return err
		}
	}
	if aux.End != nil {
		if r.End, err = unixSeconds("end", *aux.End); err != nil {
			return err
		}
	}
	return nil
}

// unixSeconds truncates v to whole seconds. Values outside int64 have no
// faithful integer form and are rejected.
func unixSeconds(field string, v float64) (int64, error) {
	t := math.Trunc(v)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("%s %g out of range for Unix seconds", field, v)
	}
	return int64(t), nil
}

// WeatherHistoryTool forwards history queries to the upstream API. Every
// failure is logged and collapsed to WeatherHistoryErrorMessage.
type WeatherHistoryTool struct {
	fetcher client.HistoryFetcher
	logger  *zap.Logger
}

var _ Tool = (*WeatherHistoryTool)(nil)

// NewWeatherHistoryTool returns the tool. A nil logger discards output.
func NewWeatherHistoryTool(fetcher client.HistoryFetcher, logger *zap.Logger) *WeatherHistoryTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHistoryTool{
		fetcher: fetcher,
		logger:  logger.With(zap.String("tool", WeatherHistoryName)),
	}
}

// Descriptor returns the static callable descriptor.
func (t *WeatherHistoryTool) Descriptor() Descriptor {
	return WeatherHistoryDescriptor()
}

// WeatherHistoryDescriptor returns a copy of the get_weather_history descriptor.
func WeatherHistoryDescriptor() Descriptor {
	d := weatherHistoryDescriptor
	d.Parameters.Properties = make(map[string]Property, len(weatherHistoryDescriptor.Parameters.Properties))
	for k, v := range weatherHistoryDescriptor.Parameters.Properties {
		d.Parameters.Properties[k] = v
	}
	d.Parameters.Required = append([]string(nil), weatherHistoryDescriptor.Parameters.Required...)
	return d
}

// Call decodes JSON arguments and runs Execute.
func (t *WeatherHistoryTool) Call(ctx context.Context, args json.RawMessage) Result {
	var req HistoryRequest
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return t.fail(ctx, fmt.Errorf("decode arguments: %w: %v", client.ErrInvalidArguments, err))
		}
	}
	return t.Execute(ctx, req)
}

// Execute performs one upstream request. It never returns an error; failures
// come back as the error descriptor.
func (t *WeatherHistoryTool) Execute(ctx context.Context, req HistoryRequest) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = t.fail(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	body, err := t.fetcher.GetHistory(ctx, client.HistoryQuery{
		Lat:   req.Lat,
		Lon:   req.Lon,
		Start: req.Start,
		End:   req.End,
	})
	if err != nil {
		return t.fail(ctx, err)
	}

	observability.RecordToolInvocation(WeatherHistoryName, "")
	return Success(body)
}

func (t *WeatherHistoryTool) fail(ctx context.Context, err error) Result {
	category := client.CategorizeError(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("category", string(category)),
	}
	var upstream *client.UpstreamError
	if errors.As(err, &upstream) {
		fields = append(fields, zap.Int("status_code", upstream.StatusCode))
	}
	if corrID := client.CorrelationID(ctx); corrID != "" {
		fields = append(fields, zap.String("correlation_id", corrID))
	}
	t.logger.Error("error accessing weather history", fields...)

	observability.RecordToolInvocation(WeatherHistoryName, string(category))
	return Failure(WeatherHistoryErrorMessage)
}
