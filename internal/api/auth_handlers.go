package api

import (
	"net/http"
	"strings"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.startLogin(w, r, false)
}

func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.startLogin(w, r, true)
}

func (h *APIHandler) startLogin(w http.ResponseWriter, r *http.Request, register bool) {
	target, err := h.session.LoginURL(w, register)
	if err != nil {
		h.log.Error("Failed to build login URL", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *APIHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Callback(w, r); err != nil {
		h.log.Warn("OAuth callback rejected", "error", err)
		writeUnauthorized(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.session.LogoutURL(w), http.StatusFound)
}

func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

type captureRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=100"`
}

type captureResponse struct {
	Message string      `json:"message"`
	User    *store.User `json:"user"`
}

// Capture materialises the caller as a User row. Repeated calls return the existing row with 200.
func (h *APIHandler) Capture(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req captureRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	candidate := &store.User{AuthUserID: identity.ID, Email: req.Email, DisplayName: req.DisplayName}
	if candidate.Email == nil && identity.Email != "" {
		email := identity.Email
		candidate.Email = &email
	}
	if candidate.DisplayName == nil {
		if name := strings.TrimSpace(identity.DisplayName()); name != "" {
			candidate.DisplayName = &name
		}
	}

	user, created, err := h.store.CaptureUser(r.Context(), candidate)
	if err != nil {
		h.handleStoreError(w, r, err, "capture user")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, captureResponse{Message: "User already exists", User: user})
		return
	}
	h.log.Info("User captured", "user_id", user.ID, "auth_user_id", identity.ID)
	writeJSON(w, http.StatusCreated, captureResponse{Message: "User created successfully", User: user})
}
