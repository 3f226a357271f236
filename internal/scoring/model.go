package scoring

import (
	"fmt"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// Input is a match after the fitted transforms have been applied.
type Input struct {
	// Flat is the scaled legacy vector; only the legacy MLP reads it.
	Flat []float64
	// Rows is the scaled 30 x 13 player matrix.
	Rows [][]float64
	Mask [features.MatrixRows]bool
	// Delta is the scaled delta vector in fitted order.
	Delta    []float64
	MapIndex int
}

// Model is one checkpoint variant.
type Model interface {
	Architecture() Architecture
	// Logit returns the pre-sigmoid score for team 1 winning.
	Logit(in *Input) float64
	// MapEmbeddings is the size of the map embedding table.
	MapEmbeddings() int
}

// TeamPooler is implemented by models that pool each team with learned
// weights over its rows.
type TeamPooler interface {
	PoolWeights(in *Input) (team1, team2 []float64)
}

// BuildModel instantiates the variant for arch from its parameters.
func BuildModel(arch Architecture, w Weights) (Model, error) {
	switch arch {
	case ArchLegacyMLP:
		return newLegacyMLP(w)
	case ArchCNN:
		return newCNN(w)
	case ArchDeepSet:
		return newDeepSet(w)
	case ArchAttention:
		return newAttention(w)
	default:
		return nil, fmt.Errorf("unknown architecture %q", arch)
	}
}

func teamRows(in *Input, team int) ([][]float64, []bool) {
	start := (team - 1) * features.MaxPlayers
	end := start + features.MaxPlayers
	return in.Rows[start:end], in.Mask[start:end]
}

// mapVector returns the map embedding for in. Indices outside the table
// fall back to the unknown-map row 0.
func mapVector(e *nn.Embedding, in *Input) []float64 {
	return e.Lookup(in.MapIndex)
}
