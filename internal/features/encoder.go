// Package features turns two rosters of player stats into the fixed-shape
// numeric representation the scoring models were trained on.
//
// The encoding must stay bit-for-bit compatible with the training pipeline:
// rows are sorted by descending WN8 (stable), truncated to 15, zero padded,
// and team 1 is stacked above team 2.
package features

import (
	"sort"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

const (
	// MaxPlayers is the number of rows per team.
	MaxPlayers = models.MaxPlayersPerTeam
	// NumFeatures is the number of numeric columns per player.
	NumFeatures = 13
	// MatrixRows is the row count of the stacked match matrix.
	MatrixRows = 2 * MaxPlayers
	// FlatSize is the length of the legacy flattened match vector.
	FlatSize = MatrixRows * NumFeatures
)

// FeatureColumns is the column order of a player row.
var FeatureColumns = [NumFeatures]string{
	"battles",
	"overallWN8",
	"overallWNX",
	"winrate",
	"dpg",
	"assist",
	"frags",
	"survival",
	"spots",
	"cap",
	"def",
	"xp",
	"kd",
}

// MapLookup resolves a raw map id to its embedding index.
type MapLookup interface {
	MapIndex(mapID int64) (int, bool)
}

// MatchFeatures is the encoded match.
type MatchFeatures struct {
	// Matrix holds team 1 in rows 0-14 and team 2 in rows 15-29.
	Matrix [MatrixRows][NumFeatures]float64
	// RowMask is true for rows backed by a real player.
	RowMask [MatrixRows]bool
	// Delta holds team1 - team2 aggregates in DeltaFeatureNames order.
	Delta [NumDeltaFeatures]float64

	MapID      int64
	MapIndex   int
	MapUnknown bool
}

// Flat returns the legacy 390-long vector: team 1 rows then team 2 rows.
func (f *MatchFeatures) Flat() []float64 {
	out := make([]float64, 0, FlatSize)
	for _, row := range f.Matrix {
		out = append(out, row[:]...)
	}
	return out
}

// Rows returns a copy of the matrix as slices.
func (f *MatchFeatures) Rows() [][]float64 {
	out := make([][]float64, MatrixRows)
	for i := range f.Matrix {
		row := make([]float64, NumFeatures)
		copy(row, f.Matrix[i][:])
		out[i] = row
	}
	return out
}

// TeamSize returns the number of real players encoded for team 1 or 2.
func (f *MatchFeatures) TeamSize(team int) int {
	start := (team - 1) * MaxPlayers
	n := 0
	for i := start; i < start+MaxPlayers; i++ {
		if f.RowMask[i] {
			n++
		}
	}
	return n
}

// Encode builds the match features. Nil entries are skipped; they stand for
// players without usable data and end up as padding. An unknown map resolves
// to index 0 with MapUnknown set.
func Encode(team1, team2 []*models.PlayerStats, mapID int64, maps MapLookup) *MatchFeatures {
	f := &MatchFeatures{MapID: mapID}

	sorted1 := SortTeam(team1)
	sorted2 := SortTeam(team2)

	fillTeam(f, 0, sorted1)
	fillTeam(f, MaxPlayers, sorted2)

	d1 := teamAggregates(sorted1)
	d2 := teamAggregates(sorted2)
	for i := range f.Delta {
		f.Delta[i] = d1[i] - d2[i]
	}

	if maps != nil {
		if idx, ok := maps.MapIndex(mapID); ok {
			f.MapIndex = idx
		} else {
			f.MapUnknown = true
		}
	} else {
		f.MapUnknown = true
	}

	return f
}

// SortTeam drops nil entries, sorts by WN8 descending keeping the input
// order for ties, and keeps at most MaxPlayers players.
func SortTeam(team []*models.PlayerStats) []*models.PlayerStats {
	players := make([]*models.PlayerStats, 0, len(team))
	for _, p := range team {
		if p != nil {
			players = append(players, p)
		}
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].OverallWN8.Or(0) > players[j].OverallWN8.Or(0)
	})

	if len(players) > MaxPlayers {
		players = players[:MaxPlayers]
	}
	return players
}

func fillTeam(f *MatchFeatures, offset int, players []*models.PlayerStats) {
	for i, p := range players {
		f.Matrix[offset+i] = Row(p)
		f.RowMask[offset+i] = true
	}
}

// Row returns the player's columns in FeatureColumns order. Absent values
// are 0.
func Row(p *models.PlayerStats) [NumFeatures]float64 {
	return [NumFeatures]float64{
		p.Battles.Or(0),
		p.OverallWN8.Or(0),
		p.OverallWNX.Or(0),
		p.Winrate.Or(0),
		p.DPG.Or(0),
		p.Assist.Or(0),
		p.Frags.Or(0),
		p.Survival.Or(0),
		p.Spots.Or(0),
		p.Cap.Or(0),
		p.Def.Or(0),
		p.XP.Or(0),
		p.KD.Or(0),
	}
}
