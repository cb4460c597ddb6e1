package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-history-tool/internal/lifecycle"
	"github.com/kjstillabower/weather-history-tool/internal/observability"
	"github.com/kjstillabower/weather-history-tool/internal/tool"
)

// MaxArgumentBytes caps the size of a tool invocation body.
const MaxArgumentBytes = 1 << 20

// Version is reported by /health. Set via ldflags.
var Version = "dev"

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry *tool.Registry
	logger   *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(registry *tool.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// ListTools handles GET /tools.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": h.registry.Definitions(),
	})
}

// GetTool handles GET /tools/{name}.
func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	t, ok := h.registry.Get(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "TOOL_NOT_FOUND", "no tool named "+name)
		return
	}
	writeJSON(w, http.StatusOK, t.Descriptor().Definition())
}

// InvokeTool handles POST /tools/{name}/invoke. The body is the JSON argument
// object. Tool failures are part of the result and still return 200.
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := h.registry.Get(name); !ok {
		writeError(w, r, http.StatusNotFound, "TOOL_NOT_FOUND", "no tool named "+name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxArgumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "arguments exceed size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "unable to read request body")
		return
	}

	var args json.RawMessage
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		args = json.RawMessage(trimmed)
	}

	result, err := h.registry.Call(r.Context(), name, args)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "TOOL_NOT_FOUND", err.Error())
		return
	}
	if !result.OK() {
		loggerFromRequest(r, h.logger).Debug("tool returned error descriptor", zap.String("tool", name))
		w.Header().Set("X-Tool-Outcome", "error")
	} else {
		w.Header().Set("X-Tool-Outcome", "success")
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if lifecycle.IsShuttingDown() {
		status, code = "shutting-down", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   observability.ServiceName,
		"version":   Version,
		"tools":     h.registry.List(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationIDFromRequest(r),
		},
	})
}
