package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-history-tool/internal/client"
	"github.com/kjstillabower/weather-history-tool/internal/config"
	"github.com/kjstillabower/weather-history-tool/internal/observability"
	"github.com/kjstillabower/weather-history-tool/internal/tool"
)

// runtime is what every subcommand needs: config, logger and the tool registry.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *tool.Registry
}

// bootstrap loads config, applies the --api-url override, and registers the tools.
func bootstrap(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, exitError(exitGeneric, "config: %v", err)
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.HistoryAPIURL = apiURL
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, exitError(exitGeneric, "logger: %v", err)
	}

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, exitError(exitGeneric, "%v", err)
	}
	return &runtime{cfg: cfg, logger: logger, registry: registry}, nil
}

func newRegistry(cfg *config.Config, logger *zap.Logger) (*tool.Registry, error) {
	historyClient, err := client.NewHistoryClient(cfg.HistoryAPIKey, cfg.HistoryAPIURL, cfg.HistoryAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("history client: %w", err)
	}
	if cfg.HistoryAPIKey == "" {
		logger.Warn("no API key configured; upstream requests will be rejected", zap.String("env", config.APIKeyEnv))
	}

	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewWeatherHistoryTool(historyClient, logger)); err != nil {
		return nil, fmt.Errorf("register %s: %w", tool.WeatherHistoryName, err)
	}
	return registry, nil
}
