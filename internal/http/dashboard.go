package httpx

import (
	"context"
	"net/http"
	"time"
)

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	stats, err := r.dashboard.Stats(req.Context())
	if err != nil {
		r.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleChainStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.dashboard.ChainStatus(req.Context()))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]any)
	status := "ok"
	if r.storeHealth != nil {
		if err := r.storeHealth(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	chain := r.dashboard.ChainStatus(ctx)
	if chain.CLIAvailable {
		components["notary"] = map[string]any{"status": "up"}
	} else {
		status = "degraded"
		components["notary"] = map[string]any{
			"status": "down",
			"error":  chain.Message,
		}
	}

	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}
