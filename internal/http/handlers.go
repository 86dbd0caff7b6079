package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/wildfire-risk-console/internal/lifecycle"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/observability"
	"github.com/kjstillabower/wildfire-risk-console/internal/traffic"
)

// HealthConfig holds the thresholds the health handler evaluates.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	StartTime        time.Time
	// ServiceProbe, when set, checks the prediction service's own health endpoint.
	ServiceProbe func(ctx context.Context) (models.HealthStatus, error)
}

// Handler serves the diagnostics endpoints.
type Handler struct {
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{healthConfig: healthConfig, logger: logger}
}

// NewRouter returns the diagnostics router: GET /health and /metrics.
func NewRouter(h *Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())
	return router
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, checks := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "wildfire-risk-console",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		resp["submissions"] = map[string]interface{}{
			"window":     h.healthConfig.DegradedWindow.String(),
			"attempts":   traffic.SubmissionCount(h.healthConfig.DegradedWindow),
			"total":      total,
			"errors":     errs,
			"suppressed": traffic.SuppressedCount(h.healthConfig.DegradedWindow),
		}
		if !h.healthConfig.StartTime.IsZero() {
			resp["uptime"] = time.Since(h.healthConfig.StartTime).Round(time.Second).String()
		}
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting down, prediction service probe, then
// the submission error rate.
func (h *Handler) computeHealthStatus(ctx context.Context) (healthResult, map[string]string) {
	checks := map[string]string{"predictionApi": "unchecked"}

	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, lifecycle.Reason()}, checks
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}

	if h.healthConfig.ServiceProbe != nil {
		hs, err := h.healthConfig.ServiceProbe(ctx)
		switch {
		case err != nil:
			LoggerFrom(ctx).Debug("prediction service probe failed", zap.Error(err))
			checks["predictionApi"] = "unreachable"
			return healthResult{"degraded", http.StatusServiceUnavailable, "prediction_api_unreachable"}, checks
		case !hs.ModelLoaded:
			checks["predictionApi"] = "model_not_loaded"
			return healthResult{"degraded", http.StatusServiceUnavailable, "model_not_loaded"}, checks
		}
		checks["predictionApi"] = "healthy"
	}

	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errs) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}, checks
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}, checks
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
