package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the weatherhistory command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "weatherhistory",
		Short: "Historical weather lookup tool for agent frameworks",
		Long: "weatherhistory exposes get_weather_history, a callable that forwards a\n" +
			"lat/lon/start/end query to the OpenWeatherMap history API.\n" +
			"The API key is read from OPENWEATHERMAP_API_KEY or config/secrets.yaml.",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("weatherhistory version %s\n", version))

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewInvokeCmd())
	root.AddCommand(NewDescribeCmd())
	return root
}
