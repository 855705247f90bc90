package handler

import (
	"log/slog"
	"net/http"

	"github.com/reimagine/reimagine/internal/auth"
	"github.com/reimagine/reimagine/internal/metrics"
)

// OpsKeyHeader carries the operator key for internal endpoints.
const OpsKeyHeader = "X-Ops-Key"

// MetricsHandler exposes an in-memory metrics snapshot to operators.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
	opsKeyHash  string
	logger      *slog.Logger
}

// NewMetricsHandler creates a new MetricsHandler. An empty opsKeyHash
// disables the endpoint.
func NewMetricsHandler(snapshotter metrics.Snapshotter, opsKeyHash string, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		snapshotter: snapshotter,
		opsKeyHash:  opsKeyHash,
		logger:      logger,
	}
}

// Snapshot handles GET /internal/metrics.
func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.opsKeyHash == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	key := r.Header.Get(OpsKeyHeader)
	if key == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing operator key")
		return
	}

	match, err := auth.VerifyOpsKey(key, h.opsKeyHash)
	if err != nil || !match {
		if err != nil {
			h.logger.Error("ops key verification error", "error", err.Error())
		}
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid operator key")
		return
	}

	writeJSON(w, http.StatusOK, h.snapshotter.Snapshot())
}
