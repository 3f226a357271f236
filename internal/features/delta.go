package features

import (
	"fmt"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

// NumDeltaFeatures is the length of the engineered delta vector.
const NumDeltaFeatures = 6

const topK = 3

// DeltaFeatureNames is the canonical order of MatchFeatures.Delta. Scaler
// bundles list the order they were fitted with; see DeltaOrder.
var DeltaFeatureNames = [NumDeltaFeatures]string{
	"wn8_mean_diff",
	"winrate_mean_diff",
	"wn8_top3_mean_diff",
	"battles_sum_diff",
	"dpg_mean_diff",
	"xp_mean_diff",
}

// DeltaOrder maps a fitted name list to canonical indices, so that
// out[i] = Delta[order[i]]. Every canonical name must appear exactly once.
func DeltaOrder(names []string) ([]int, error) {
	if len(names) != NumDeltaFeatures {
		return nil, fmt.Errorf("expected %d delta feature names, got %d", NumDeltaFeatures, len(names))
	}

	canonical := make(map[string]int, NumDeltaFeatures)
	for i, n := range DeltaFeatureNames {
		canonical[n] = i
	}

	order := make([]int, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		idx, ok := canonical[n]
		if !ok {
			return nil, fmt.Errorf("unknown delta feature %q", n)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate delta feature %q", n)
		}
		seen[n] = true
		order[i] = idx
	}
	return order, nil
}

// teamAggregates computes the per-team statistics of the delta vector over
// sorted, unpadded players. An empty team yields zeros.
func teamAggregates(players []*models.PlayerStats) [NumDeltaFeatures]float64 {
	var out [NumDeltaFeatures]float64
	if len(players) == 0 {
		return out
	}

	var wn8, winrate, battles, dpg, xp float64
	for _, p := range players {
		wn8 += p.OverallWN8.Or(0)
		winrate += p.Winrate.Or(0)
		battles += p.Battles.Or(0)
		dpg += p.DPG.Or(0)
		xp += p.XP.Or(0)
	}
	n := float64(len(players))

	// players are sorted by WN8, so the head is the top-k
	k := min(topK, len(players))
	var top float64
	for _, p := range players[:k] {
		top += p.OverallWN8.Or(0)
	}

	out[0] = wn8 / n
	out[1] = winrate / n
	out[2] = top / float64(k)
	out[3] = battles
	out[4] = dpg / n
	out[5] = xp / n
	return out
}
