package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/jeff-ai/jeff-api/internal/core"
	"github.com/jeff-ai/jeff-api/internal/store"
)

const maxUploadBytes = 32 << 20

type transcribeResponse struct {
	Transcription string            `json:"transcription"`
	Refined       string            `json:"refined,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	Refinement    *store.Refinement `json:"refinement,omitempty"`
}

// Transcribe converts an uploaded recording to text. With refine=true the
// transcript also goes through the refinement pipeline and is stored for the caller.
func (h *APIHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Debug("Transcribe upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "No valid file provided")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "No valid file provided")
		return
	}

	refine := r.FormValue("refine") == "true"
	var user *store.User
	if refine {
		var ok bool
		if user, ok = h.callerUser(w, r); !ok {
			return
		}
	}

	transcript, err := h.gateway.Transcriber.Transcribe(r.Context(), audio, core.TranscribeOptions{
		MimeType: header.Header.Get("Content-Type"),
		Language: r.FormValue("language"),
	})
	if err != nil {
		h.log.Error("Transcription failed", "filename", header.Filename, "size", header.Size, "error", err)
		if errors.Is(err, core.ErrNoTranscript) {
			writeError(w, http.StatusInternalServerError, "Failed to get transcription")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to transcribe file")
		return
	}

	resp := transcribeResponse{Transcription: transcript}
	if refine {
		refinement, err := h.refine.CreateRefinement(r.Context(), user.ID, transcript, "")
		if err != nil {
			h.log.Error("Transcript refinement failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to refine transcription")
			return
		}
		resp.Refined = refinement.RefinedText
		if refinement.Explanation != nil {
			resp.Explanation = *refinement.Explanation
		}
		resp.Refinement = refinement
	}
	writeJSON(w, http.StatusCreated, resp)
}
