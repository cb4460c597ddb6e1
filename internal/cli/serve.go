package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	httphandler "github.com/kjstillabower/weather-history-tool/internal/http"
	"github.com/kjstillabower/weather-history-tool/internal/lifecycle"
	"github.com/kjstillabower/weather-history-tool/internal/observability"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool over HTTP (GET /tools, POST /tools/{name}/invoke)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Listen port (overrides config)")
	cmd.Flags().String("api-url", "", "Override the history API URL")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	logger := rt.logger
	cfg := rt.cfg
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		logger.Info("inbound rate limit enabled", zap.Int("rps", cfg.RateLimitRPS), zap.Int("burst", cfg.RateLimitBurst))
	}

	handler := httphandler.NewHandler(rt.registry, logger)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("history_api_url", cfg.HistoryAPIURL),
			zap.Strings("tools", rt.registry.List()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server", zap.Error(err))
			_ = observability.FlushTelemetry(context.Background(), logger)
			return exitError(exitGeneric, "server: %v", err)
		}
	case <-ctx.Done():
	}
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		return exitError(exitGeneric, "telemetry flush: %v", err)
	}
	return nil
}
