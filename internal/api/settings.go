package api

import (
	"errors"
	"net/http"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

type settingsRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	City      *string  `json:"city" validate:"omitempty,max=255"`
	State     *string  `json:"state" validate:"omitempty,max=255"`
	Country   *string  `json:"country" validate:"omitempty,len=2"`
	Units     *string  `json:"units" validate:"omitempty,oneof=standard metric imperial"`
	Language  *string  `json:"language" validate:"omitempty,len=2"`
}

func (req *settingsRequest) updates() map[string]any {
	updates := map[string]any{}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Units != nil {
		updates["units"] = *req.Units
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	return updates
}

// callerUser resolves the User row of the authenticated caller. It writes
// 404 "User not found" when the caller was never captured.
func (h *APIHandler) callerUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	identity, ok := caller(w, r)
	if !ok {
		return nil, false
	}
	user, err := h.store.GetUserByAuthID(r.Context(), identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
		return nil, false
	}
	if err != nil {
		h.handleStoreError(w, r, err, "look up user")
		return nil, false
	}
	return user, true
}

func (h *APIHandler) handleSettingsError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgSettingsNotFound)
		return
	}
	h.handleStoreError(w, r, err, action)
}

func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.callerUser(w, r)
	if !ok {
		return
	}
	settings, err := h.store.GetSettingsByUser(r.Context(), user.ID)
	if err != nil {
		h.handleSettingsError(w, r, err, "get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// CreateSettings stores the caller's settings. A user holds at most one settings row.
func (h *APIHandler) CreateSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req settingsRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	user, ok := h.callerUser(w, r)
	if !ok {
		return
	}

	settings := &store.Settings{
		UserID:    user.ID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
	}
	if req.Units != nil {
		settings.Units = *req.Units
	}
	if req.Language != nil {
		settings.Language = *req.Language
	}

	err := h.store.CreateSettings(r.Context(), settings)
	if errors.Is(err, store.ErrSettingsExist) {
		writeValidation(w, validation.NewError(validation.Issue{
			Code:    validation.CodeCustom,
			Path:    []string{"userId"},
			Message: "Settings already exist for this user",
		}))
		return
	}
	if err != nil {
		h.handleStoreError(w, r, err, "create settings")
		return
	}
	writeJSON(w, http.StatusCreated, settings)
}

func (h *APIHandler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req settingsRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeValidation(w, validation.NoUpdates())
		return
	}
	user, ok := h.callerUser(w, r)
	if !ok {
		return
	}

	settings, err := h.store.UpdateSettingsByUser(r.Context(), user.ID, updates)
	if err != nil {
		h.handleSettingsError(w, r, err, "update settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
