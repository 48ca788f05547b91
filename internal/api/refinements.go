package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/utils"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

type createRefinementRequest struct {
	UserID            *string `json:"userId" validate:"required,min=1"`
	OriginalText      *string `json:"originalText" validate:"required,min=1"`
	AdditionalContext *string `json:"additionalContext"`
}

type patchRefinementRequest struct {
	UserID                *string      `json:"userId" validate:"omitempty,min=1"`
	OriginalText          *string      `json:"originalText" validate:"omitempty,min=1"`
	OriginalTextWordCount *int         `json:"originalTextWordCount" validate:"omitempty,gte=0"`
	RefinedText           *string      `json:"refinedText" validate:"omitempty,min=1"`
	RefinedTextWordCount  *int         `json:"refinedTextWordCount" validate:"omitempty,gte=0"`
	Explanation           *string      `json:"explanation"`
	Vector                store.Vector `json:"vector" validate:"omitempty,len=1536"`
}

// updates maps the supplied fields to columns. Word counts follow a changed text unless supplied.
func (req *patchRefinementRequest) updates() map[string]any {
	updates := map[string]any{}
	if req.UserID != nil {
		updates["user_id"] = *req.UserID
	}
	if req.OriginalText != nil {
		updates["original_text"] = *req.OriginalText
		updates["original_text_word_count"] = utils.WordCount(*req.OriginalText)
	}
	if req.OriginalTextWordCount != nil {
		updates["original_text_word_count"] = *req.OriginalTextWordCount
	}
	if req.RefinedText != nil {
		updates["refined_text"] = *req.RefinedText
		updates["refined_text_word_count"] = utils.WordCount(*req.RefinedText)
	}
	if req.RefinedTextWordCount != nil {
		updates["refined_text_word_count"] = *req.RefinedTextWordCount
	}
	if req.Explanation != nil {
		updates["explanation"] = *req.Explanation
	}
	if req.Vector != nil {
		updates["vector"] = req.Vector
	}
	return updates
}

type convertToMarkdownRequest struct {
	HTML *string `json:"html" validate:"required,min=1"`
}

func (h *APIHandler) ListRefinements(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	refinements, err := h.store.ListRefinements(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "list refinements")
		return
	}
	writeJSON(w, http.StatusOK, refinements)
}

// CreateRefinement runs the original text through completion and embedding, then stores the result.
func (h *APIHandler) CreateRefinement(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req createRefinementRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	if !h.ownerExists(w, r, *req.UserID) {
		return
	}

	additionalContext := ""
	if req.AdditionalContext != nil {
		additionalContext = *req.AdditionalContext
	}
	refinement, err := h.refine.CreateRefinement(r.Context(), *req.UserID, *req.OriginalText, additionalContext)
	if err != nil {
		h.log.Error("Refinement failed", "user_id", *req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create refinement")
		return
	}
	writeJSON(w, http.StatusCreated, refinement)
}

func (h *APIHandler) ConvertToMarkdown(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req convertToMarkdownRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	markdown, err := h.refine.ConvertToMarkdown(r.Context(), *req.HTML)
	if err != nil {
		h.log.Error("Markdown conversion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to convert to markdown")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"markdown": markdown})
}

func (h *APIHandler) GetRefinement(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	refinement, err := h.store.GetRefinement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleStoreError(w, r, err, "get refinement")
		return
	}
	writeJSON(w, http.StatusOK, refinement)
}

func (h *APIHandler) PatchRefinement(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var req patchRefinementRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeValidation(w, validation.NoUpdates())
		return
	}
	if _, err := h.store.GetRefinement(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "update refinement")
		return
	}
	if req.UserID != nil && !h.ownerExists(w, r, *req.UserID) {
		return
	}

	refinement, err := h.store.UpdateRefinement(r.Context(), id, updates)
	if err != nil {
		h.handleStoreError(w, r, err, "update refinement")
		return
	}
	writeJSON(w, http.StatusOK, refinement)
}

func (h *APIHandler) DeleteRefinement(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	if err := h.store.DeleteRefinement(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleStoreError(w, r, err, "delete refinement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
