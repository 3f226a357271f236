package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/logic"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
)

// Error stages reported to clients.
const (
	stageInput     = "input"
	stageUpstream  = "upstream"
	stageArtifact  = "artifact"
	stageTransform = "transform"
	stageInternal  = "internal"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{}
	architecture := ""
	if a, err := h.artifacts.Get(ctx); err == nil {
		checks["artifacts"] = true
		architecture = string(a.Architecture)
	} else {
		checks["artifacts"] = false
		h.logger.Warnw("Artifacts not ready", "error", err)
	}
	if h.cache != nil {
		checks["cache"] = h.cache.Ping(ctx) == nil
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":        allHealthy,
		"checks":       checks,
		"architecture": architecture,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, stage, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message, "stage": stage})
}

// serviceError maps a prediction error to its HTTP status and stage.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *logic.InputError
	var artifactErr *scoring.ArtifactError
	var transformErr *scoring.TransformError

	switch {
	case errors.As(err, &inputErr):
		h.errorResponse(w, http.StatusBadRequest, stageInput, inputErr.Error())
	case errors.As(err, &artifactErr):
		h.logger.Errorw("Scoring artifacts unavailable", "path", r.URL.Path, "error", err)
		h.errorResponse(w, http.StatusServiceUnavailable, stageArtifact, "Model artifacts unavailable")
	case errors.As(err, &transformErr):
		h.logger.Errorw("Feature transform failed", "path", r.URL.Path, "stage", transformErr.Stage, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, stageTransform, "Failed to transform features")
	case errors.Is(err, context.Canceled):
		h.logger.Infow("Request cancelled", "path", r.URL.Path)
	default:
		h.logger.Errorw("Prediction failed", "path", r.URL.Path, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, stageInternal, "Prediction failed")
	}
}
