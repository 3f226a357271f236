package scoring

import (
	"fmt"
	"math"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// Prepare applies the fitted transforms a's model expects to f.
func Prepare(f *features.MatchFeatures, a *Artifacts) (*Input, error) {
	in := &Input{Mask: f.RowMask, MapIndex: f.MapIndex}
	if f.MapIndex >= a.NumMaps {
		in.MapIndex = 0
	}

	if a.Architecture == ArchLegacyMLP {
		flat, err := a.Scalers.TransformFlat(f)
		if err != nil {
			return nil, err
		}
		in.Flat = flat
		return in, nil
	}

	rows, err := a.Scalers.TransformRows(f)
	if err != nil {
		return nil, err
	}
	delta, err := a.Scalers.TransformDelta(f)
	if err != nil {
		return nil, err
	}
	in.Rows = rows
	in.Delta = delta
	return in, nil
}

// Score returns the probability that team 1 wins.
func Score(f *features.MatchFeatures, a *Artifacts) (float64, error) {
	in, err := Prepare(f, a)
	if err != nil {
		return 0, err
	}
	logit := a.Model.Logit(in)
	if math.IsNaN(logit) {
		return 0, &ArtifactError{Err: fmt.Errorf("%s model produced NaN", a.Architecture)}
	}
	return nn.Sigmoid(logit), nil
}

// UserProbability turns a team 1 win probability into the probability that
// side wins.
func UserProbability(team1 float64, side int) float64 {
	if side == 2 {
		return 1 - team1
	}
	return team1
}

// Predicted reports a win for a user-relative probability.
func Predicted(p float64) bool {
	return p > 0.5
}
