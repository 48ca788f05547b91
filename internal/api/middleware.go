package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeff-ai/jeff-api/internal/auth"
)

type requestInfoKey struct{}

// requestInfo is filled in by inner middleware so the request log can report it.
type requestInfo struct {
	authUserID string
}

// RequestLogger logs one line per request once the response is written.
func (h *APIHandler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info.authUserID != "" {
			fields = append(fields, "auth_user_id", info.authUserID)
		}

		switch {
		case status >= 500:
			h.log.Error("HTTP request", fields...)
		case status >= 400:
			h.log.Warn("HTTP request", fields...)
		default:
			h.log.Info("HTTP request", fields...)
		}
	})
}

// RequireAuth resolves the caller or answers 401. The identity is attached to the request context.
func (h *APIHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.authenticator.Authenticate(w, r)
		if err != nil || identity == nil {
			h.log.Debug("Authentication failed", "path", r.URL.Path, "error", err)
			writeUnauthorized(w)
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.authUserID = identity.ID
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}
