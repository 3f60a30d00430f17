package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/splax/cybervault/internal/repository"
)

func (r *Router) handleListOperations(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	ops, err := r.operations.List(req.Context(), limit)
	if err != nil {
		r.logger.Error("list operations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch operations")
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func (r *Router) handleGetOperation(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	op, err := r.operations.Get(req.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, op)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Operation not found")
	default:
		r.logger.Error("get operation failed", "operation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch operation")
	}
}
