package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

type createFeedbackRequest struct {
	UserID      *string      `json:"userId" validate:"required,min=1"`
	FeatureType *string      `json:"featureType" validate:"required,min=1,max=100"`
	FeatureID   *string      `json:"featureId" validate:"required,min=1,max=255"`
	Rating      *int         `json:"rating" validate:"required,gte=1,lte=5"`
	Comment     *string      `json:"comment"`
	Vector      store.Vector `json:"vector" validate:"omitempty,len=1536"`
}

type patchFeedbackRequest struct {
	UserID      *string      `json:"userId" validate:"omitempty,min=1"`
	FeatureType *string      `json:"featureType" validate:"omitempty,min=1,max=100"`
	FeatureID   *string      `json:"featureId" validate:"omitempty,min=1,max=255"`
	Rating      *int         `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment     *string      `json:"comment"`
	Vector      store.Vector `json:"vector" validate:"omitempty,len=1536"`
}

func (req *patchFeedbackRequest) updates() map[string]any {
	updates := map[string]any{}
	if req.UserID != nil {
		updates["user_id"] = *req.UserID
	}
	if req.FeatureType != nil {
		updates["feature_type"] = *req.FeatureType
	}
	if req.FeatureID != nil {
		updates["feature_id"] = *req.FeatureID
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Comment != nil {
		updates["comment"] = *req.Comment
	}
	if req.Vector != nil {
		updates["vector"] = req.Vector
	}
	return updates
}

// ListFeedback returns every feedback row regardless of owner.
func (h *APIHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	feedback, err := h.store.ListFeedback(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "list feedback")
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

// CreateFeedback stores a rating. A comment is embedded and the vector stored with it.
func (h *APIHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req createFeedbackRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	if !h.ownerExists(w, r, *req.UserID) {
		return
	}

	fb := &store.Feedback{
		UserID:      *req.UserID,
		FeatureType: *req.FeatureType,
		FeatureID:   *req.FeatureID,
		Rating:      *req.Rating,
		Comment:     req.Comment,
		Vector:      req.Vector,
	}
	if req.Comment != nil && *req.Comment != "" {
		vector, err := h.gateway.Embedder.Embed(r.Context(), *req.Comment)
		if err != nil {
			h.log.Error("Feedback embedding failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create feedback embedding")
			return
		}
		fb.Vector = vector
	}

	if err := h.store.CreateFeedback(r.Context(), fb); err != nil {
		h.handleStoreError(w, r, err, "create feedback")
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (h *APIHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	fb, err := h.store.GetFeedback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleStoreError(w, r, err, "get feedback")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// PatchFeedback applies a partial update. A changed comment is re-embedded unless a vector is supplied.
func (h *APIHandler) PatchFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var req patchFeedbackRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeValidation(w, validation.NoUpdates())
		return
	}
	if _, err := h.store.GetFeedback(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "update feedback")
		return
	}
	if req.UserID != nil && !h.ownerExists(w, r, *req.UserID) {
		return
	}

	if req.Comment != nil && req.Vector == nil {
		if *req.Comment == "" {
			updates["vector"] = store.Vector(nil)
		} else {
			vector, err := h.gateway.Embedder.Embed(r.Context(), *req.Comment)
			if err != nil {
				h.log.Error("Feedback embedding failed", "feedback_id", id, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to create feedback embedding")
				return
			}
			updates["vector"] = store.Vector(vector)
		}
	}

	fb, err := h.store.UpdateFeedback(r.Context(), id, updates)
	if err != nil {
		h.handleStoreError(w, r, err, "update feedback")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *APIHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	if err := h.store.DeleteFeedback(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleStoreError(w, r, err, "delete feedback")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
