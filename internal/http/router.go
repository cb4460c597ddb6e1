package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-history-tool/internal/observability"
)

// RouterConfig holds the per-route middleware settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter // nil disables rate limiting
}

// NewRouter wires the tool routes, health and metrics.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	toolsRouter := router.PathPrefix("/tools").Subrouter()
	toolsRouter.HandleFunc("", h.ListTools).Methods(http.MethodGet)
	toolsRouter.HandleFunc("/{name}", h.GetTool).Methods(http.MethodGet)

	invokeRouter := toolsRouter.PathPrefix("/{name}/invoke").Subrouter()
	invokeRouter.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		invokeRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	invokeRouter.HandleFunc("", h.InvokeTool).Methods(http.MethodPost)

	return router
}
