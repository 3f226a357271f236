package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/logic"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Router(RouterConfig{APIPrefix: "/api", AllowedOrigins: []string{"*"}}).ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestPredictWin_Post(t *testing.T) {
	mock := &MockPredictionService{}
	h := newTestHandler(mock)

	body := `{"user": "alpha", "user_spawn": 2, "region": "eu", "map_id": 19,
		"spawn_1": ["alpha", "bravo"], "spawn_2": ["charlie"]}`
	req := httptest.NewRequest("POST", "/api/predict/win", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := serve(h, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got := mock.lastRequest
	if got.User != "alpha" || got.UserSpawn != 2 || got.MapID == nil || *got.MapID != 19 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Spawn1) != 2 || len(got.Spawn2) != 1 {
		t.Errorf("spawns = %v / %v", got.Spawn1, got.Spawn2)
	}
	if decodeBody(t, w)["probability"] != 50.0 {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPredictWin_PostRegionFromQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		want   string
	}{
		{"query only", "/api/predict/win?region=na", `{"user": "a", "user_spawn": 1, "map_id": 19}`, "na"},
		{"body wins", "/api/predict/win?region=na", `{"user": "a", "user_spawn": 1, "map_id": 19, "region": "asia"}`, "asia"},
		{"features", "/api/predict/features?region=com", `{"user": "a", "user_spawn": 1}`, "com"},
		{"neither", "/api/predict/win", `{"user": "a", "user_spawn": 1, "map_id": 19}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPredictionService{}
			h := newTestHandler(mock)

			req := httptest.NewRequest("POST", tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(h, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if mock.lastRequest == nil || mock.lastRequest.Region != tt.want {
				t.Errorf("region = %+v, want %q", mock.lastRequest, tt.want)
			}
		})
	}
}

func TestPredictWin_Get(t *testing.T) {
	mock := &MockPredictionService{}
	h := newTestHandler(mock)

	req := httptest.NewRequest("GET", "/api/predict/win?user=alpha&user_spawn=1&map_id=23&spawn_1=alpha,+bravo&spawn_2=charlie,,delta", nil)
	w := serve(h, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got := mock.lastRequest
	if got.UserSpawn != 1 || *got.MapID != 23 {
		t.Errorf("request = %+v", got)
	}
	if strings.Join(got.Spawn1, "|") != "alpha|bravo" || strings.Join(got.Spawn2, "|") != "charlie|delta" {
		t.Errorf("spawns = %q / %q", got.Spawn1, got.Spawn2)
	}
}

func TestPredictWin_GetAliasesAndPseudos(t *testing.T) {
	mock := &MockPredictionService{}
	h := newTestHandler(mock)

	req := httptest.NewRequest("GET", "/api/predict/win?current_user=alpha&spawn=2&pseudos=a,b,c", nil)
	w := serve(h, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := mock.lastRequest
	if got.User != "alpha" || got.UserSpawn != 2 || len(got.Pseudos) != 3 || got.Spawn1 != nil {
		t.Errorf("request = %+v", got)
	}
}

func TestPredictWin_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"invalid json", "POST", "/api/predict/win", `{"user":`},
		{"missing user", "POST", "/api/predict/win", `{"user_spawn": 1, "map_id": 1}`},
		{"side out of range", "POST", "/api/predict/win", `{"user": "a", "user_spawn": 3, "map_id": 1}`},
		{"negative map id", "POST", "/api/predict/win", `{"user": "a", "user_spawn": 1, "map_id": -1}`},
		{"bad player spawn", "POST", "/api/predict/win", `{"user": "a", "user_spawn": 1, "players": [{"name": "x", "spawn": 5}]}`},
		{"non-numeric side", "GET", "/api/predict/win?user=a&user_spawn=one", ""},
		{"non-numeric map", "GET", "/api/predict/win?user=a&user_spawn=1&map_id=himmelsdorf", ""},
		{"missing side", "GET", "/api/predict/features?user=a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPredictionService{}
			h := newTestHandler(mock)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			w := serve(h, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
			if decodeBody(t, w)["stage"] != stageInput {
				t.Errorf("body = %s", w.Body.String())
			}
			if mock.lastRequest != nil {
				t.Error("service should not be called")
			}
		})
	}
}

func TestPredictWin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"input", &logic.InputError{Field: "map_id", Message: "is required"}, http.StatusBadRequest, stageInput},
		{"artifact", &scoring.ArtifactError{Path: "model.safetensors", Err: errors.New("no such file")}, http.StatusServiceUnavailable, stageArtifact},
		{"wrapped artifact", fmt.Errorf("load: %w", &scoring.ArtifactError{Err: errors.New("bad header")}), http.StatusServiceUnavailable, stageArtifact},
		{"transform", &scoring.TransformError{Stage: "player", Err: errors.New("length mismatch")}, http.StatusInternalServerError, stageTransform},
		{"other", errors.New("boom"), http.StatusInternalServerError, stageInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPredictionService{
				PredictWinFunc: func(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error) {
					return nil, tt.err
				},
			}
			h := newTestHandler(mock)

			req := httptest.NewRequest("GET", "/api/predict/win?user=a&user_spawn=1&map_id=1&pseudos=a", nil)
			w := serve(h, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if stage := decodeBody(t, w)["stage"]; stage != tt.stage {
				t.Errorf("stage = %v, want %s", stage, tt.stage)
			}
		})
	}
}

func TestPredictFeatures(t *testing.T) {
	mock := &MockPredictionService{
		BuildFeaturesFunc: func(ctx context.Context, req *models.PredictRequest) (*models.FeaturesResponse, error) {
			return &models.FeaturesResponse{
				User:           req.User,
				Team1:          req.Spawn1,
				Team2:          []string{},
				MissingPlayers: map[string]string{"ghost": "wg_not_found"},
			}, nil
		},
	}
	h := newTestHandler(mock)

	req := httptest.NewRequest("POST", "/api/predict/features", strings.NewReader(`{"user": "a", "user_spawn": 1, "spawn_1": ["a", "ghost"]}`))
	w := serve(h, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	missing, _ := body["missing_players"].(map[string]interface{})
	if missing["ghost"] != "wg_not_found" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAccountList(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		proxy      func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "passthrough",
			target: "/api/wg/account/list?search=alpha,bravo&region=NA&limit=2&type=startswith",
			proxy: func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
				if region != "na" || search != "alpha,bravo" || limit != 2 || searchType != "startswith" {
					return nil, fmt.Errorf("unexpected args %s %s %s %d", region, search, searchType, limit)
				}
				return &upstream.RawResponse{StatusCode: 200, Body: json.RawMessage(`{"status":"ok","data":[{"nickname":"alpha","account_id":1}]}`)}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","data":[{"nickname":"alpha","account_id":1}]}`,
		},
		{
			name:   "default region and limit",
			target: "/api/wg/account/list?search=alpha",
			proxy: func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
				if region != "eu" || limit != upstream.MaxAccountListLimit {
					return nil, fmt.Errorf("unexpected args %s %d", region, limit)
				}
				return &upstream.RawResponse{StatusCode: 200, Body: json.RawMessage(`{}`)}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{}`,
		},
		{
			name:   "upstream status relayed",
			target: "/api/wg/account/list?search=alpha",
			proxy: func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
				return &upstream.RawResponse{StatusCode: 504, Body: json.RawMessage(`{"status":"error"}`)}, nil
			},
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   `{"status":"error"}`,
		},
		{
			name:   "unreachable",
			target: "/api/wg/account/list?search=alpha",
			proxy: func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
				return nil, &upstream.Error{Provider: "wargaming", Kind: upstream.KindTransport, Err: errUnreachable}
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "not configured",
			target: "/api/wg/account/list?search=alpha",
			proxy: func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
				return nil, fmt.Errorf("wargaming application id missing: %w", upstream.ErrNotConfigured)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{name: "missing search", target: "/api/wg/account/list", wantStatus: http.StatusBadRequest},
		{name: "unknown region", target: "/api/wg/account/list?search=a&region=mars", wantStatus: http.StatusBadRequest},
		{name: "bad type", target: "/api/wg/account/list?search=a&type=fuzzy", wantStatus: http.StatusBadRequest},
		{name: "bad limit", target: "/api/wg/account/list?search=a&limit=ten", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&MockPredictionService{})
			h.accounts = &MockAccountProxy{AccountListRawFunc: tt.proxy}

			w := serve(h, httptest.NewRequest("GET", tt.target, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestPlayerOverall(t *testing.T) {
	var gotServer string
	var gotID int64
	h := newTestHandler(&MockPredictionService{})
	h.stats = &MockStatsProxy{
		PlayerOverallRawFunc: func(ctx context.Context, server string, accountID int64) (*upstream.RawResponse, error) {
			gotServer, gotID = server, accountID
			if accountID == 13 {
				return nil, &upstream.Error{Provider: "tomato", Kind: upstream.KindDecode, Err: errors.New("html")}
			}
			return &upstream.RawResponse{StatusCode: 200, Body: json.RawMessage(`{"data":{"overallWN8":2100}}`)}, nil
		},
	}

	w := serve(h, httptest.NewRequest("GET", "/api/tomato/player/overall/eu/500123", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"data":{"overallWN8":2100}}` {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotServer != "eu" || gotID != 500123 {
		t.Errorf("proxied %s/%d", gotServer, gotID)
	}

	w = serve(h, httptest.NewRequest("GET", "/api/tomato/player/overall/eu/13", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", w.Code)
	}

	for _, id := range []string{"abc", "0", "-5"} {
		w = serve(h, httptest.NewRequest("GET", "/api/tomato/player/overall/eu/"+id, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("account %s: status = %d, want 400", id, w.Code)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name      string
		artifacts func(ctx context.Context) (*scoring.Artifacts, error)
		cache     Pinger
		want      int
	}{
		{name: "ready without cache", want: http.StatusOK},
		{name: "ready with cache", cache: &MockPinger{}, want: http.StatusOK},
		{
			name: "artifacts missing",
			artifacts: func(ctx context.Context) (*scoring.Artifacts, error) {
				return nil, &scoring.ArtifactError{Path: "model.safetensors", Err: errors.New("no such file")}
			},
			want: http.StatusServiceUnavailable,
		},
		{
			name:  "cache down",
			cache: &MockPinger{PingFunc: func(ctx context.Context) error { return errUnreachable }},
			want:  http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&MockPredictionService{})
			h.artifacts = &MockArtifactProvider{GetFunc: tt.artifacts}
			h.cache = tt.cache

			w := serve(h, httptest.NewRequest("GET", "/api/ready", nil))
			if w.Code != tt.want {
				t.Errorf("ready status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}

			w = serve(h, httptest.NewRequest("GET", "/api/health", nil))
			if w.Code != http.StatusOK {
				t.Errorf("health status = %d", w.Code)
			}
		})
	}
}

func TestMetricsAndCORS(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})

	w := serve(h, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d", w.Code)
	}

	req := httptest.NewRequest("OPTIONS", "/api/predict/win", nil)
	req.Header.Set("Origin", "https://overlay.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = serve(h, req)
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("preflight headers = %v", w.Header())
	}
}
