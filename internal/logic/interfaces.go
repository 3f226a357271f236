package logic

import (
	"context"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
)

// AccountDirectory resolves nicknames to account ids (Wargaming account/list).
type AccountDirectory interface {
	AccountList(ctx context.Context, region, search, searchType string, limit int) (*models.AccountListResponse, error)
}

// StatProvider fetches per-account overall stats (tomato.gg).
type StatProvider interface {
	PlayerOverall(ctx context.Context, server string, accountID int64) (*models.TomatoOverallResponse, error)
}

// LookupCache remembers resolved account ids and slimmed stat payloads.
// Implementations swallow their own errors and report them as misses.
type LookupCache interface {
	GetAccountID(ctx context.Context, region, name string) (int64, bool)
	SetAccountID(ctx context.Context, region, name string, accountID int64)
	GetStats(ctx context.Context, server string, accountID int64) (*models.PlayerStats, bool)
	SetStats(ctx context.Context, server string, accountID int64, stats *models.PlayerStats)
}

// ArtifactProvider hands out the shared scoring artifacts.
type ArtifactProvider interface {
	Get(ctx context.Context) (*scoring.Artifacts, error)
}

// PredictionService is the top-level match prediction use case.
type PredictionService interface {
	PredictWin(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error)
	BuildFeatures(ctx context.Context, req *models.PredictRequest) (*models.FeaturesResponse, error)
}
