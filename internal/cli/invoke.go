package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-history-tool/internal/observability"
	"github.com/kjstillabower/weather-history-tool/internal/tool"
)

// NewInvokeCmd creates the "invoke" subcommand.
func NewInvokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Call get_weather_history once and print the result JSON",
		Example: `  weatherhistory invoke --lat 35 --lon 139 --start 1609459200 --end 1609545600
  weatherhistory invoke --args '{"lat":35,"lon":139,"start":1609459200,"end":1609545600}'`,
		Args: cobra.NoArgs,
		RunE: runInvoke,
	}
	cmd.Flags().String("tool", tool.WeatherHistoryName, "Tool name")
	cmd.Flags().Float64("lat", 0, "Latitude of the location")
	cmd.Flags().Float64("lon", 0, "Longitude of the location")
	cmd.Flags().Int64("start", 0, "Start of the range (Unix seconds)")
	cmd.Flags().Int64("end", 0, "End of the range (Unix seconds)")
	cmd.Flags().String("args", "", "Raw JSON arguments; overrides --lat/--lon/--start/--end")
	cmd.Flags().String("api-url", "", "Override the history API URL")
	return cmd
}

func runInvoke(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = observability.FlushTelemetry(cmd.Context(), rt.logger) }()

	args, err := invokeArguments(cmd)
	if err != nil {
		return exitError(exitGeneric, "%v", err)
	}

	name, _ := cmd.Flags().GetString("tool")
	result, err := rt.registry.Call(cmd.Context(), name, args)
	if err != nil {
		return exitError(exitGeneric, "%v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return exitError(exitGeneric, "encode result: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !result.OK() {
		return exitError(exitToolError, "%s", result.Err())
	}
	return nil
}

// invokeArguments builds the JSON argument object. Only flags the user set are
// included, so omitted fields stay omitted.
func invokeArguments(cmd *cobra.Command) (json.RawMessage, error) {
	if raw, _ := cmd.Flags().GetString("args"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("--args is not valid JSON")
		}
		return json.RawMessage(raw), nil
	}

	args := make(map[string]interface{}, 4)
	for _, name := range []string{"lat", "lon"} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			args[name] = v
		}
	}
	for _, name := range []string{"start", "end"} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetInt64(name)
			args[name] = v
		}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
