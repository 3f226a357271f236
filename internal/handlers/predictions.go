package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

// PredictWin scores a match for the requesting user
// @Summary Predict match outcome
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.PredictRequest true "Match rosters"
// @Success 200 {object} models.PredictionResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 503 {object} map[string]string "Model artifacts unavailable"
// @Router /predict/win [post]
func (h *Handler) PredictWin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePredictRequest(w, r)
	if !ok {
		return
	}

	result, err := h.prediction.PredictWin(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, result)
}

// PredictFeatures returns the collected player stats without scoring
// @Summary Collect match features
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.PredictRequest true "Match rosters"
// @Success 200 {object} models.FeaturesResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /predict/features [post]
func (h *Handler) PredictFeatures(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePredictRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.prediction.BuildFeatures(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// decodePredictRequest reads a PredictRequest from the JSON body (POST) or
// the query string (GET) and validates it.
func (h *Handler) decodePredictRequest(w http.ResponseWriter, r *http.Request) (*models.PredictRequest, bool) {
	var req *models.PredictRequest
	var err error

	if r.Method == http.MethodGet {
		req, err = predictRequestFromQuery(r.URL.Query())
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
		req = &models.PredictRequest{}
		if decodeErr := json.NewDecoder(r.Body).Decode(req); decodeErr != nil {
			err = fmt.Errorf("invalid JSON body: %w", decodeErr)
		}
		if req.Region == "" {
			req.Region = strings.TrimSpace(r.URL.Query().Get("region"))
		}
	}
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, stageInput, err.Error())
		return nil, false
	}

	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, stageInput, err.Error())
		return nil, false
	}
	return req, true
}

func predictRequestFromQuery(q url.Values) (*models.PredictRequest, error) {
	req := &models.PredictRequest{
		User:   strings.TrimSpace(firstQuery(q, "user", "current_user", "nickname")),
		Region: strings.TrimSpace(q.Get("region")),
	}

	if v := firstQuery(q, "user_spawn", "current_user_spawn", "spawn"); v != "" {
		side, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("user_spawn must be an integer, got %q", v)
		}
		req.UserSpawn = side
	}

	if v := strings.TrimSpace(q.Get("map_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("map_id must be an integer, got %q", v)
		}
		req.MapID = &id
	}

	if q.Has("spawn_1") || q.Has("spawn_2") {
		req.Spawn1 = models.ParseCSVList(q.Get("spawn_1"))
		req.Spawn2 = models.ParseCSVList(q.Get("spawn_2"))
	}
	req.Pseudos = models.ParseCSVList(q.Get("pseudos"))

	return req, nil
}

func firstQuery(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}
