package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

// MockPredictionService
type MockPredictionService struct {
	PredictWinFunc    func(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error)
	BuildFeaturesFunc func(ctx context.Context, req *models.PredictRequest) (*models.FeaturesResponse, error)
	lastRequest       *models.PredictRequest
}

func (m *MockPredictionService) PredictWin(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error) {
	m.lastRequest = req
	if m.PredictWinFunc != nil {
		return m.PredictWinFunc(ctx, req)
	}
	return &models.PredictionResult{User: req.User, UserSpawn: req.UserSpawn, Probability: 50}, nil
}

func (m *MockPredictionService) BuildFeatures(ctx context.Context, req *models.PredictRequest) (*models.FeaturesResponse, error) {
	m.lastRequest = req
	if m.BuildFeaturesFunc != nil {
		return m.BuildFeaturesFunc(ctx, req)
	}
	return &models.FeaturesResponse{User: req.User, UserSpawn: req.UserSpawn}, nil
}

// MockAccountProxy
type MockAccountProxy struct {
	AccountListRawFunc func(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error)
}

func (m *MockAccountProxy) AccountListRaw(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error) {
	if m.AccountListRawFunc != nil {
		return m.AccountListRawFunc(ctx, region, search, searchType, limit)
	}
	return &upstream.RawResponse{StatusCode: 200, Body: json.RawMessage(`{"status":"ok","data":[]}`)}, nil
}

// MockStatsProxy
type MockStatsProxy struct {
	PlayerOverallRawFunc func(ctx context.Context, server string, accountID int64) (*upstream.RawResponse, error)
}

func (m *MockStatsProxy) PlayerOverallRaw(ctx context.Context, server string, accountID int64) (*upstream.RawResponse, error) {
	if m.PlayerOverallRawFunc != nil {
		return m.PlayerOverallRawFunc(ctx, server, accountID)
	}
	return &upstream.RawResponse{StatusCode: 200, Body: json.RawMessage(`{"data":{}}`)}, nil
}

// MockArtifactProvider
type MockArtifactProvider struct {
	GetFunc func(ctx context.Context) (*scoring.Artifacts, error)
}

func (m *MockArtifactProvider) Get(ctx context.Context) (*scoring.Artifacts, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return &scoring.Artifacts{Architecture: scoring.ArchCNN}, nil
}

// MockPinger
type MockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func newTestHandler(prediction *MockPredictionService) *Handler {
	return New(Config{
		Prediction:    prediction,
		Accounts:      &MockAccountProxy{},
		Stats:         &MockStatsProxy{},
		Artifacts:     &MockArtifactProvider{},
		DefaultRegion: "eu",
		Logger:        zap.NewNop(),
	})
}

var errUnreachable = errors.New("dial tcp: connection refused")
