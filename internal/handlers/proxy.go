package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

// AccountList proxies the Wargaming account/list endpoint
// @Summary Wargaming account search
// @Tags Proxy
// @Produce json
// @Param search query string true "Comma separated nicknames"
// @Param type query string false "exact or startswith"
// @Param limit query int false "1-100"
// @Param region query string false "eu, na, ru or asia"
// @Success 200 {object} models.AccountListResponse
// @Failure 502 {object} map[string]string "Upstream unreachable"
// @Router /wg/account/list [get]
func (h *Handler) AccountList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	search := strings.TrimSpace(q.Get("search"))
	if search == "" {
		h.errorResponse(w, http.StatusBadRequest, stageInput, "search is required")
		return
	}

	region := strings.ToLower(strings.TrimSpace(q.Get("region")))
	if region == "" {
		region = h.defaultRegion
	}
	if !upstream.ValidRegion(region) {
		h.errorResponse(w, http.StatusBadRequest, stageInput, "invalid region")
		return
	}

	searchType := q.Get("type")
	if searchType != "" && searchType != "exact" && searchType != "startswith" {
		h.errorResponse(w, http.StatusBadRequest, stageInput, "type must be exact or startswith")
		return
	}

	limit := upstream.MaxAccountListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, stageInput, "limit must be an integer")
			return
		}
		limit = n
	}

	raw, err := h.accounts.AccountListRaw(r.Context(), region, search, searchType, limit)
	if err != nil {
		h.upstreamError(w, "wargaming", err)
		return
	}
	h.rawResponse(w, raw)
}

// PlayerOverall proxies the tomato.gg player/overall endpoint
// @Summary tomato.gg player overall stats
// @Tags Proxy
// @Produce json
// @Param server path string true "Server (eu, com, asia)"
// @Param account_id path int true "Wargaming account id"
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} map[string]string "Upstream unreachable"
// @Router /tomato/player/overall/{server}/{account_id} [get]
func (h *Handler) PlayerOverall(w http.ResponseWriter, r *http.Request) {
	server := strings.TrimSpace(chi.URLParam(r, "server"))
	if server == "" {
		h.errorResponse(w, http.StatusBadRequest, stageInput, "server is required")
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		h.errorResponse(w, http.StatusBadRequest, stageInput, "account_id must be a positive integer")
		return
	}

	raw, err := h.stats.PlayerOverallRaw(r.Context(), server, accountID)
	if err != nil {
		h.upstreamError(w, "tomato", err)
		return
	}
	h.rawResponse(w, raw)
}

// rawResponse relays the upstream status and JSON body.
func (h *Handler) rawResponse(w http.ResponseWriter, raw *upstream.RawResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(raw.StatusCode)
	w.Write(raw.Body)
}

func (h *Handler) upstreamError(w http.ResponseWriter, provider string, err error) {
	if errors.Is(err, upstream.ErrNotConfigured) {
		h.logger.Errorw("Upstream not configured", "provider", provider, "error", err)
		h.errorResponse(w, http.StatusServiceUnavailable, stageUpstream, provider+" proxy is not configured")
		return
	}
	h.logger.Warnw("Upstream request failed", "provider", provider, "error", err)
	h.errorResponse(w, http.StatusBadGateway, stageUpstream, provider+" request failed")
}
