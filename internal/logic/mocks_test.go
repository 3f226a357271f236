package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
)

// MockAccountDirectory
type MockAccountDirectory struct {
	AccountListFunc func(ctx context.Context, region, search, searchType string, limit int) (*models.AccountListResponse, error)
	calls           atomic.Int32
}

func (m *MockAccountDirectory) AccountList(ctx context.Context, region, search, searchType string, limit int) (*models.AccountListResponse, error) {
	m.calls.Add(1)
	if m.AccountListFunc != nil {
		return m.AccountListFunc(ctx, region, search, searchType, limit)
	}
	return &models.AccountListResponse{Status: "ok", Data: json.RawMessage(`[]`)}, nil
}

// MockStatProvider
type MockStatProvider struct {
	PlayerOverallFunc func(ctx context.Context, server string, accountID int64) (*models.TomatoOverallResponse, error)
	calls             atomic.Int32
}

func (m *MockStatProvider) PlayerOverall(ctx context.Context, server string, accountID int64) (*models.TomatoOverallResponse, error) {
	m.calls.Add(1)
	if m.PlayerOverallFunc != nil {
		return m.PlayerOverallFunc(ctx, server, accountID)
	}
	return &models.TomatoOverallResponse{Data: json.RawMessage(`{"battles": 1000, "overallWN8": 1500}`)}, nil
}

// MockArtifactProvider
type MockArtifactProvider struct {
	GetFunc func(ctx context.Context) (*scoring.Artifacts, error)
	calls   atomic.Int32
}

func (m *MockArtifactProvider) Get(ctx context.Context) (*scoring.Artifacts, error) {
	m.calls.Add(1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return nil, &scoring.ArtifactError{Err: fmt.Errorf("no artifacts")}
}

// memoryCache is an in-process LookupCache.
type memoryCache struct {
	mu       sync.Mutex
	accounts map[string]int64
	stats    map[int64]*models.PlayerStats
}

func newMemoryCache() *memoryCache {
	return &memoryCache{accounts: map[string]int64{}, stats: map[int64]*models.PlayerStats{}}
}

func (c *memoryCache) GetAccountID(ctx context.Context, region, name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.accounts[region+":"+strings.ToLower(name)]
	return id, ok
}

func (c *memoryCache) SetAccountID(ctx context.Context, region, name string, accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[region+":"+strings.ToLower(name)] = accountID
}

func (c *memoryCache) GetStats(ctx context.Context, server string, accountID int64) (*models.PlayerStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.stats[accountID]
	return st, ok
}

func (c *memoryCache) SetStats(ctx context.Context, server string, accountID int64, stats *models.PlayerStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[accountID] = stats
}

// directoryOf answers account/list with the given nickname -> id table.
func directoryOf(accounts map[string]int64) *MockAccountDirectory {
	return &MockAccountDirectory{
		AccountListFunc: func(ctx context.Context, region, search, searchType string, limit int) (*models.AccountListResponse, error) {
			var entries []string
			for _, name := range strings.Split(search, ",") {
				if id, ok := accounts[name]; ok {
					entries = append(entries, fmt.Sprintf(`{"nickname":%q,"account_id":%d}`, name, id))
				}
			}
			return &models.AccountListResponse{Status: "ok", Data: json.RawMessage("[" + strings.Join(entries, ",") + "]")}, nil
		},
	}
}

// statsByAccount answers player/overall with a WN8 per account id.
func statsByAccount(wn8 func(accountID int64) float64) *MockStatProvider {
	return &MockStatProvider{
		PlayerOverallFunc: func(ctx context.Context, server string, accountID int64) (*models.TomatoOverallResponse, error) {
			data := fmt.Sprintf(`{"battles": 5000, "overallWN8": %v, "winrate": 52, "dpg": 1400, "xp": 700, "tanks": [{"id": 1}]}`, wn8(accountID))
			return &models.TomatoOverallResponse{Data: json.RawMessage(data)}, nil
		},
	}
}

// antisymmetricArtifacts builds a legacy model whose logit is
// 0.001 * (sum(team1) - sum(team2)) over the raw WN8 column, so identical
// rosters score exactly 0.5.
func antisymmetricArtifacts(t *testing.T) *scoring.Artifacts {
	t.Helper()

	const embDim = 10
	in := features.FlatSize + embDim
	weight := make([]float64, in)
	for row := 0; row < features.MatrixRows; row++ {
		sign := 1.0
		if row >= features.MaxPlayers {
			sign = -1
		}
		weight[row*features.NumFeatures+1] = sign * 0.001
	}

	w := scoring.Weights{
		scoring.MapEmbeddingParam: {Shape: []int{4, embDim}, Data: make([]float64, 4*embDim)},
		"net.0.weight":            {Shape: []int{1, in}, Data: weight},
		"net.0.bias":              {Shape: []int{1}, Data: []float64{0}},
	}

	mean := make([]string, features.FlatSize)
	scale := make([]string, features.FlatSize)
	for i := range mean {
		mean[i] = "0"
		scale[i] = "1"
	}
	bundle, err := scoring.ParseScalerBundle([]byte(`{"format":"flat","scaler":{"mean":[` +
		strings.Join(mean, ",") + `],"scale":[` + strings.Join(scale, ",") + `]}}`))
	if err != nil {
		t.Fatalf("ParseScalerBundle: %v", err)
	}
	vocab, err := scoring.ParseVocabulary([]byte(`{"19": 1, "23": 2, "31": 3}`))
	if err != nil {
		t.Fatalf("ParseVocabulary: %v", err)
	}

	a, err := scoring.NewArtifacts(w, bundle, vocab, zap.NewNop())
	if err != nil {
		t.Fatalf("NewArtifacts: %v", err)
	}
	return a
}

func staticArtifacts(a *scoring.Artifacts) *MockArtifactProvider {
	return &MockArtifactProvider{GetFunc: func(ctx context.Context) (*scoring.Artifacts, error) { return a, nil }}
}
