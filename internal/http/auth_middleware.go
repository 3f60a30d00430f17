package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

type authContextKey struct{}

type authInfo struct {
	UserID   int64
	Username string
}

type contextSetter interface {
	SetContext(context.Context)
}

// optionalAuth attaches the caller identity when a valid bearer token is
// present. Requests without a token pass through anonymously; a malformed
// or rejected token is a 401.
func (r *Router) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		if strings.TrimSpace(header) == "" {
			next.ServeHTTP(w, req)
			return
		}
		ctx, ok := r.ensureAuth(w, req, header)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// requireAuth rejects anonymous writes when authentication is enforced.
func (r *Router) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.authRequired {
			next.ServeHTTP(w, req)
			return
		}
		if _, ok := authInfoFromContext(req.Context()); !ok {
			r.logger.Warn("authentication required", "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, req)
	})
}

// ensureAuth validates the Authorization header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request, header string) (context.Context, bool) {
	token, err := bearerToken(header)
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), false
	}
	user, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), false
	}
	info := authInfo{UserID: user.ID, Username: user.Username}
	return context.WithValue(req.Context(), authContextKey{}, info), true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	return info, ok
}

func (r *Router) rateLimitKeyUser(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.UserID > 0 {
		return "user:" + strconv.FormatInt(info.UserID, 10)
	}
	return ""
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
