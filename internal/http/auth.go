package httpx

import (
	"errors"
	"net/http"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/service/auth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload credentials
	if err := decodeJSON(req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := r.auth.Signup(req.Context(), payload.Username, payload.Password)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			r.logger.Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload credentials
	if err := decodeJSON(req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		r.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, session)
}
