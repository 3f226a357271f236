package logic

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

// MaxConcurrentFetches bounds in-flight stat requests per prediction.
const MaxConcurrentFetches = 8

var (
	statFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wot_stat_fetch_total",
		Help: "Per-player stat lookups by outcome",
	}, []string{"outcome"})

	statFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wot_stat_fetch_duration_seconds",
		Help:    "Duration of upstream stat fetches",
		Buckets: prometheus.DefBuckets,
	})
)

// collectOutcome is the result of one player's fetch: stats or a reason.
type collectOutcome struct {
	name   string
	stats  *models.PlayerStats
	reason Reason
}

// StatCollector fetches stats for resolved accounts with bounded fan-out.
type StatCollector struct {
	provider StatProvider
	cache    LookupCache
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewStatCollector(provider StatProvider, cache LookupCache, timeout time.Duration, logger *zap.Logger) *StatCollector {
	return &StatCollector{provider: provider, cache: cache, timeout: timeout, logger: logger.Sugar()}
}

// Collect fetches every account. A failed fetch only marks its own player.
func (c *StatCollector) Collect(ctx context.Context, accounts map[string]int64, server string) (map[string]*models.PlayerStats, map[string]Reason) {
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]collectOutcome, len(names))

	var g errgroup.Group
	g.SetLimit(MaxConcurrentFetches)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			outcomes[i] = c.fetchOne(ctx, name, accounts[name], server)
			return nil
		})
	}
	_ = g.Wait()

	stats := make(map[string]*models.PlayerStats, len(names))
	missing := make(map[string]Reason)
	for _, o := range outcomes {
		if o.reason != "" {
			missing[o.name] = o.reason
			continue
		}
		stats[o.name] = o.stats
	}
	return stats, missing
}

func (c *StatCollector) fetchOne(ctx context.Context, name string, accountID int64, server string) collectOutcome {
	if cached, ok := c.cache.GetStats(ctx, server, accountID); ok {
		statFetches.WithLabelValues("cached").Inc()
		return collectOutcome{name: name, stats: cached}
	}

	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.provider.PlayerOverall(fetchCtx, server, accountID)
	statFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		statFetches.WithLabelValues(string(ReasonFetchFailed)).Inc()
		c.logger.Warnw("Stat fetch failed", "name", name, "account_id", accountID, "error", err)
		return collectOutcome{name: name, reason: ReasonFetchFailed}
	}

	stats, err := models.NewPlayerStats(resp.Data)
	if err != nil {
		statFetches.WithLabelValues(string(ReasonInvalidStatPayload)).Inc()
		c.logger.Warnw("Stat payload unusable", "name", name, "account_id", accountID, "error", err)
		return collectOutcome{name: name, reason: ReasonInvalidStatPayload}
	}

	statFetches.WithLabelValues("ok").Inc()
	c.cache.SetStats(ctx, server, accountID, stats)
	return collectOutcome{name: name, stats: stats}
}
