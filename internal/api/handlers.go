package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jeff-ai/jeff-api/internal/auth"
	"github.com/jeff-ai/jeff-api/internal/core"
	"github.com/jeff-ai/jeff-api/internal/logger"
	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

const (
	msgNotFound         = "Not Found"
	msgUnauthorized     = "Unauthorized"
	msgUserNotFound     = "User not found"
	msgSettingsNotFound = "Settings not found"
)

type APIHandler struct {
	store         *store.Store
	gateway       *core.Gateway
	refine        *core.RefineService
	authenticator auth.Authenticator
	session       *auth.SessionFlow
	log           *logger.Logger
}

func NewAPIHandler(db *store.Store, gateway *core.Gateway, authenticator auth.Authenticator, session *auth.SessionFlow, log *logger.Logger) *APIHandler {
	return &APIHandler{
		store:         db,
		gateway:       gateway,
		refine:        core.NewRefineService(gateway.Completer, gateway.Embedder, db, log),
		authenticator: authenticator,
		session:       session,
		log:           log.With("component", "api"),
	}
}

type validationErrorBody struct {
	Success bool                `json:"success"`
	Error   validationErrorInfo `json:"error"`
}

type validationErrorInfo struct {
	Issues []validation.Issue `json:"issues"`
	Name   string             `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, msgUnauthorized)
}

func writeNotFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, msgNotFound)
}

func writeValidation(w http.ResponseWriter, verr *validation.Error) {
	writeJSON(w, http.StatusUnprocessableEntity, validationErrorBody{
		Success: false,
		Error:   validationErrorInfo{Issues: verr.Issues, Name: "ValidationError"},
	})
}

// handleRequestError writes the response for a decode or validation failure.
// Errors that are not validation errors are logged and reported as 500.
func (h *APIHandler) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := validation.AsError(err); ok {
		writeValidation(w, verr)
		return
	}
	h.log.Error("Request decoding failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// handleStoreError maps store.ErrNotFound to 404 and anything else to a logged 500.
func (h *APIHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	h.log.Error("Store operation failed", "action", action, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to "+action)
}

// caller returns the identity attached by requireAuth. Handlers check it again and answer 401 when absent.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return nil, false
	}
	return identity, true
}

// ownerExists validates an owner reference. It writes the response and returns false when the user is unknown.
func (h *APIHandler) ownerExists(w http.ResponseWriter, r *http.Request, userID string) bool {
	exists, err := h.store.UserExists(r.Context(), userID)
	if err != nil {
		h.handleStoreError(w, r, err, "look up user")
		return false
	}
	if !exists {
		writeValidation(w, validation.NewError(validation.Issue{
			Code:    validation.CodeCustom,
			Path:    []string{"userId"},
			Message: "User does not exist",
		}))
		return false
	}
	return true
}

func (h *APIHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Jeff AI API")
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
