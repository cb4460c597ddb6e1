package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-history-tool/internal/tool"
)

// NewDescribeCmd creates the "describe" subcommand.
func NewDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the tool descriptor",
		Long:  "Print the callable descriptor in the native form or as an OpenAI / Anthropic tool parameter.",
		Args:  cobra.NoArgs,
		RunE:  runDescribe,
	}
	cmd.Flags().String("format", "native", "Output format: native | openai | openai-responses | anthropic")
	return cmd
}

func runDescribe(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")

	d := tool.WeatherHistoryDescriptor()
	if err := d.Validate(); err != nil {
		return exitError(exitGeneric, "%v", err)
	}

	var v interface{}
	switch format {
	case "native":
		v = d.Definition()
	case "openai":
		v = tool.OpenAITool(d)
	case "openai-responses":
		v = tool.OpenAIResponsesTool(d)
	case "anthropic":
		v = tool.AnthropicTool(d)
	default:
		return exitError(exitGeneric, "unknown format %q (want native, openai, openai-responses or anthropic)", format)
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitGeneric, "encode descriptor: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
