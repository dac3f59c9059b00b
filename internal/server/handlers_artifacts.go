package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

// ArtifactRequest is the body for artifact generation endpoints. Material is
// the source text (transcript, lesson content) the artifact is grounded in.
type ArtifactRequest struct {
	Title    string `json:"title" validate:"required,min=1"`
	Material string `json:"material" validate:"required,min=1"`
}

// SimulationCodeRequest is the body for POST /simulations/{id}/code.
type SimulationCodeRequest struct {
	Idea     types.SimulationIdea `json:"idea" validate:"required"`
	Material string               `json:"material" validate:"required,min=1"`
}

func (h *handlers) handleRequestArtifact(kind types.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "videoID")
		var req ArtifactRequest
		if !h.decodeAndValidate(w, r, &req) {
			return
		}
		art, started, err := h.artifacts.Request(r.Context(), kind, subjectID, req.Title, req.Material, nil)
		if err != nil {
			h.logger.Error().Err(err).Str("kind", string(kind)).Msg("artifact request failed")
			h.errorResponse(w, http.StatusInternalServerError, "Failed to request artifact")
			return
		}
		status := http.StatusOK
		if started {
			status = http.StatusAccepted
		}
		h.writeJSON(w, status, art)
	}
}

func (h *handlers) handleGetArtifact(kind types.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "videoID")
		if subjectID == "" {
			subjectID = chi.URLParam(r, "subjectID")
		}
		art, err := h.artifacts.Get(r.Context(), kind, subjectID)
		if err != nil {
			h.logger.Error().Err(err).Str("kind", string(kind)).Msg("get artifact failed")
			h.errorResponse(w, http.StatusInternalServerError, "Failed to get artifact")
			return
		}
		if art == nil {
			h.errorResponse(w, http.StatusNotFound, "Artifact not found")
			return
		}
		h.writeJSON(w, http.StatusOK, art)
	}
}

func (h *handlers) handleSimulationCode(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	var req SimulationCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	art, started, err := h.artifacts.Request(r.Context(), types.ArtifactSimulationCode, subjectID, req.Idea.Title, req.Material, &req.Idea)
	if err != nil {
		h.logger.Error().Err(err).Msg("simulation code request failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to request simulation code")
		return
	}
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, art)
}
