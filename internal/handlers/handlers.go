package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/logic"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// AccountProxy passes Wargaming account/list answers through untouched.
type AccountProxy interface {
	AccountListRaw(ctx context.Context, region, search, searchType string, limit int) (*upstream.RawResponse, error)
}

// StatsProxy passes tomato.gg player/overall answers through untouched.
type StatsProxy interface {
	PlayerOverallRaw(ctx context.Context, server string, accountID int64) (*upstream.RawResponse, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Prediction logic.PredictionService
	Accounts   AccountProxy
	Stats      StatsProxy
	Artifacts  logic.ArtifactProvider
	// Cache is pinged by the readiness check when set.
	Cache         Pinger
	DefaultRegion string
	Logger        *zap.Logger
}

type Handler struct {
	prediction    logic.PredictionService
	accounts      AccountProxy
	stats         StatsProxy
	artifacts     logic.ArtifactProvider
	cache         Pinger
	defaultRegion string
	logger        *zap.SugaredLogger
	validator     *validator.Validate
}

func New(cfg Config) *Handler {
	return &Handler{
		prediction:    cfg.Prediction,
		accounts:      cfg.Accounts,
		stats:         cfg.Stats,
		artifacts:     cfg.Artifacts,
		cache:         cfg.Cache,
		defaultRegion: cfg.DefaultRegion,
		logger:        cfg.Logger.Sugar(),
		validator:     validator.New(),
	}
}
