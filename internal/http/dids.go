package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/notary"
	"github.com/splax/cybervault/internal/service/identity"
)

type didResponse struct {
	*domain.DID
	Blockchain identity.Blockchain `json:"blockchain"`
}

func (r *Router) handleListDIDs(w http.ResponseWriter, req *http.Request) {
	dids, err := r.identity.List(req.Context())
	if err != nil {
		r.logger.Error("list dids failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch DIDs")
		return
	}
	writeJSON(w, http.StatusOK, dids)
}

func (r *Router) handleCreateDID(w http.ResponseWriter, req *http.Request) {
	var payload identity.RegisterInput
	if err := decodeJSON(req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid DID data")
		return
	}
	reg, err := r.identity.Register(req.Context(), payload)
	if err != nil {
		var (
			verr      *domain.ValidationError
			notaryErr *notary.Error
		)
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "Invalid DID data")
		case errors.Is(err, identity.ErrDIDExists):
			writeError(w, http.StatusBadRequest, "DID already exists")
		case errors.As(err, &notaryErr):
			writeProcessError(w, http.StatusInternalServerError, "Failed to register DID on blockchain", notaryErr.Message)
		default:
			r.logger.Error("register did failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to register DID")
		}
		return
	}
	writeJSON(w, http.StatusCreated, didResponse{DID: reg.DID, Blockchain: reg.Blockchain})
}

func (r *Router) handleUpdateDIDStatus(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid DID id")
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Status is required")
		return
	}
	did, err := r.identity.UpdateStatus(req.Context(), id, payload.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, did)
	case errors.Is(err, identity.ErrStatusRequired):
		writeError(w, http.StatusBadRequest, "Status is required")
	case errors.Is(err, identity.ErrDIDNotFound):
		writeError(w, http.StatusNotFound, "DID not found")
	default:
		r.logger.Error("update did status failed", "did_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update DID status")
	}
}
