package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jordan/capsule-engine/internal/capsule"
)

// CreateCapsuleRequest is the body for POST /capsules.
type CreateCapsuleRequest struct {
	Source   string `json:"source" validate:"required,min=1"`
	Guidance string `json:"guidance,omitempty"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleCreateCapsule(w http.ResponseWriter, r *http.Request) {
	var req CreateCapsuleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	cp, err := h.db.CreateCapsule(r.Context(), req.Source, req.Guidance)
	if err != nil {
		h.logger.Error().Err(err).Msg("create capsule failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to create capsule")
		return
	}
	h.writeJSON(w, http.StatusCreated, cp)
}

func (h *handlers) handleListCapsules(w http.ResponseWriter, r *http.Request) {
	capsules, err := h.db.ListCapsules(r.Context(), 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("list capsules failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list capsules")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"capsules": capsules})
}

func (h *handlers) capsuleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "capsuleID"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid capsule ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) handleGetCapsule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	cp, err := h.db.GetCapsule(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("get capsule failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get capsule")
		return
	}
	if cp == nil {
		h.errorResponse(w, http.StatusNotFound, "Capsule not found")
		return
	}
	h.writeJSON(w, http.StatusOK, cp)
}

func (h *handlers) handleDeleteCapsule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	cp, err := h.db.GetCapsule(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("delete capsule failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to delete capsule")
		return
	}
	if cp == nil {
		h.errorResponse(w, http.StatusNotFound, "Capsule not found")
		return
	}
	if err := h.db.DeleteCapsule(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Msg("delete capsule failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to delete capsule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	job, err := h.orch.StartGeneration(r.Context(), id)
	if err != nil {
		h.generationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *handlers) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	job, err := h.orch.Retry(r.Context(), id)
	if err != nil {
		h.generationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *handlers) generationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capsule.ErrCapsuleNotFound):
		h.errorResponse(w, http.StatusNotFound, "Capsule not found")
	case errors.Is(err, capsule.ErrAlreadyGenerating):
		h.errorResponse(w, http.StatusConflict, "Generation already in progress")
	case errors.Is(err, capsule.ErrAlreadyCompleted):
		h.errorResponse(w, http.StatusConflict, "Capsule is already completed")
	default:
		h.logger.Error().Err(err).Msg("generation request failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to start generation")
	}
}

func (h *handlers) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	cp, err := h.db.GetCapsule(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("get capsule failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get capsule")
		return
	}
	if cp == nil {
		h.errorResponse(w, http.StatusNotFound, "Capsule not found")
		return
	}
	job, err := h.db.GetLatestJobByCapsule(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("get job failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get progress")
		return
	}
	h.writeJSON(w, http.StatusOK, capsule.ComputeProgress(cp, job))
}

func (h *handlers) handleListModules(w http.ResponseWriter, r *http.Request) {
	id, ok := h.capsuleID(w, r)
	if !ok {
		return
	}
	modules, err := h.db.ListModules(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("list modules failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list modules")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (h *handlers) handleListLessons(w http.ResponseWriter, r *http.Request) {
	moduleID, err := uuid.Parse(chi.URLParam(r, "moduleID"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid module ID")
		return
	}
	lessons, err := h.db.ListLessons(r.Context(), moduleID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list lessons failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list lessons")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

func (h *handlers) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, err := uuid.Parse(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid lesson ID")
		return
	}
	lesson, err := h.db.GetLesson(r.Context(), lessonID)
	if err != nil {
		h.logger.Error().Err(err).Msg("get lesson failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get lesson")
		return
	}
	if lesson == nil {
		h.errorResponse(w, http.StatusNotFound, "Lesson not found")
		return
	}
	h.writeJSON(w, http.StatusOK, lesson)
}
