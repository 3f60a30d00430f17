package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/notary"
	"github.com/splax/cybervault/internal/service/notarization"
)

type documentResponse struct {
	*domain.Document
	Blockchain notarization.Blockchain `json:"blockchain"`
}

func (r *Router) handleListDocuments(w http.ResponseWriter, req *http.Request) {
	docs, err := r.notarization.List(req.Context())
	if err != nil {
		r.logger.Error("list documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (r *Router) handleCreateDocument(w http.ResponseWriter, req *http.Request) {
	var payload notarization.NotarizeInput
	if err := decodeJSON(req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document data")
		return
	}
	res, err := r.notarization.Notarize(req.Context(), payload)
	if err != nil {
		var (
			verr      *domain.ValidationError
			notaryErr *notary.Error
		)
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "Invalid document data")
		case errors.Is(err, notarization.ErrDocumentExists):
			writeError(w, http.StatusBadRequest, "Document hash already notarized")
		case errors.As(err, &notaryErr):
			writeProcessError(w, http.StatusInternalServerError, "Failed to notarize document on blockchain", notaryErr.Message)
		default:
			r.logger.Error("notarize document failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to notarize document")
		}
		return
	}
	writeJSON(w, http.StatusCreated, documentResponse{Document: res.Document, Blockchain: res.Blockchain})
}

func (r *Router) handleVerifyDocument(w http.ResponseWriter, req *http.Request) {
	result, err := r.notarization.Verify(req.Context(), chi.URLParam(req, "hash"))
	if err != nil {
		r.logger.Error("verify document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify document")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleSearchDocuments(w http.ResponseWriter, req *http.Request) {
	docs, err := r.notarization.Search(req.Context(), req.URL.Query().Get("q"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, docs)
	case errors.Is(err, notarization.ErrQueryRequired):
		writeError(w, http.StatusBadRequest, "Search query is required")
	default:
		r.logger.Error("search documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to search documents")
	}
}
