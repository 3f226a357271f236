package logic

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

var predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wot_predictions_total",
	Help: "Prediction requests by result",
}, []string{"result"})

type PredictionConfig struct {
	Directory     AccountDirectory
	Stats         StatProvider
	Cache         LookupCache
	Artifacts     ArtifactProvider
	DefaultRegion string
	FetchTimeout  time.Duration
	Logger        *zap.Logger
}

type predictionService struct {
	resolver      *IdentityResolver
	collector     *StatCollector
	artifacts     ArtifactProvider
	defaultRegion string
	logger        *zap.SugaredLogger
}

func NewPredictionService(cfg PredictionConfig) PredictionService {
	return &predictionService{
		resolver:      NewIdentityResolver(cfg.Directory, cfg.Cache, cfg.Logger),
		collector:     NewStatCollector(cfg.Stats, cfg.Cache, cfg.FetchTimeout, cfg.Logger),
		artifacts:     cfg.Artifacts,
		defaultRegion: strings.ToLower(cfg.DefaultRegion),
		logger:        cfg.Logger.Sugar(),
	}
}

// matchRequest is a validated request.
type matchRequest struct {
	region string
	team1  []string
	team2  []string
	names  []string
}

func (s *predictionService) validate(req *models.PredictRequest) (*matchRequest, error) {
	if req.UserSpawn != 1 && req.UserSpawn != 2 {
		return nil, inputErr("user_spawn", "must be 1 or 2, got %d", req.UserSpawn)
	}

	region := strings.ToLower(strings.TrimSpace(req.Region))
	if region == "" {
		region = s.defaultRegion
	}
	if !upstream.ValidRegion(region) {
		return nil, inputErr("region", "invalid region %q", region)
	}

	team1, team2 := models.SplitTeams(req)
	if team1 == nil {
		team1 = []string{}
	}
	if team2 == nil {
		team2 = []string{}
	}
	names := dedupeNames(append(append([]string{}, team1...), team2...))
	if len(names) == 0 {
		return nil, inputErr("players", "no players provided (spawn_1/spawn_2/players/pseudos)")
	}

	return &matchRequest{region: region, team1: team1, team2: team2, names: names}, nil
}

// collect resolves and fetches every player of the match.
func (s *predictionService) collect(ctx context.Context, m *matchRequest) (map[string]int64, map[string]*models.PlayerStats, map[string]Reason) {
	accounts, missing := s.resolver.Resolve(ctx, m.names, m.region)
	stats, failed := s.collector.Collect(ctx, accounts, m.region)
	for name, reason := range failed {
		missing[name] = reason
	}
	return accounts, stats, missing
}

func teamStats(names []string, stats map[string]*models.PlayerStats) []*models.PlayerStats {
	out := make([]*models.PlayerStats, 0, len(names))
	for _, n := range names {
		if st, ok := stats[n]; ok {
			out = append(out, st)
		}
	}
	return out
}

func (s *predictionService) PredictWin(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error) {
	if req.MapID == nil {
		predictionsTotal.WithLabelValues("invalid").Inc()
		return nil, inputErr("map_id", "is required for model inference")
	}
	m, err := s.validate(req)
	if err != nil {
		predictionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	predictionID := uuid.New().String()
	start := time.Now()

	_, stats, missing := s.collect(ctx, m)

	artifacts, err := s.artifacts.Get(ctx)
	if err != nil {
		predictionsTotal.WithLabelValues("artifact_error").Inc()
		return nil, err
	}

	f := features.Encode(teamStats(m.team1, stats), teamStats(m.team2, stats), *req.MapID, artifacts)
	team1Prob, err := scoring.Score(f, artifacts)
	if err != nil {
		predictionsTotal.WithLabelValues("transform_error").Inc()
		s.logger.Errorw("Scoring failed", "prediction_id", predictionID, "error", err)
		return nil, err
	}

	userProb := scoring.UserProbability(team1Prob, req.UserSpawn)
	result := &models.PredictionResult{
		PredictionID:        predictionID,
		User:                req.User,
		UserSpawn:           req.UserSpawn,
		Region:              m.region,
		Predicted:           scoring.Predicted(userProb),
		Probability:         math.Round(userProb*10000) / 100,
		Team1WinProbability: team1Prob,
		Architecture:        string(artifacts.Architecture),
		MapID:               *req.MapID,
		MapIndex:            f.MapIndex,
		MapUnknown:          f.MapUnknown,
		MissingPlayers:      reasonsToStrings(missing),
	}

	predictionsTotal.WithLabelValues("ok").Inc()
	s.logger.Infow("Prediction served",
		"prediction_id", predictionID,
		"user", req.User,
		"architecture", result.Architecture,
		"probability", result.Probability,
		"team1_players", f.TeamSize(1),
		"team2_players", f.TeamSize(2),
		"missing", len(missing),
		"map_unknown", f.MapUnknown,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *predictionService) BuildFeatures(ctx context.Context, req *models.PredictRequest) (*models.FeaturesResponse, error) {
	m, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	accounts, stats, missing := s.collect(ctx, m)

	players := make(map[string]models.PlayerFeatures, len(stats))
	for name, st := range stats {
		players[name] = models.PlayerFeatures{AccountID: accounts[name], Stats: st}
	}

	resp := &models.FeaturesResponse{
		User:           req.User,
		UserSpawn:      req.UserSpawn,
		Region:         m.region,
		MapID:          req.MapID,
		Team1:          m.team1,
		Team2:          m.team2,
		Players:        players,
		MissingPlayers: reasonsToStrings(missing),
	}

	if req.MapID != nil {
		idx := 0
		resp.MapUnknown = true
		if artifacts, err := s.artifacts.Get(ctx); err == nil {
			if i, ok := artifacts.MapIndex(*req.MapID); ok {
				idx = i
				resp.MapUnknown = false
			}
		} else {
			s.logger.Warnw("Artifacts unavailable for map lookup", "map_id", *req.MapID, "error", err)
		}
		resp.MapIndex = &idx
	}
	return resp, nil
}
