package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
)

// ScalerFormat tags the layout a scaler bundle was fitted on.
type ScalerFormat string

const (
	// FormatFlat holds one scaler over the flattened 390 vector.
	FormatFlat ScalerFormat = "flat"
	// FormatSplit holds a player block scaler and a delta scaler.
	FormatSplit ScalerFormat = "split"
)

// StandardScaler is a fitted (x - mean) / scale transform.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate(name string, sizes ...int) error {
	if s == nil {
		return fmt.Errorf("%s scaler missing", name)
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("%s scaler: %d means but %d scales", name, len(s.Mean), len(s.Scale))
	}
	for _, n := range sizes {
		if len(s.Mean) == n {
			return nil
		}
	}
	return fmt.Errorf("%s scaler has %d features, want one of %v", name, len(s.Mean), sizes)
}

// Transform scales x. A zero scale leaves the centred value as is.
func (s *StandardScaler) Transform(stage string, x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, &TransformError{Stage: stage, Err: fmt.Errorf("got %d features, scaler was fitted on %d", len(x), len(s.Mean))}
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, &TransformError{Stage: stage, Err: fmt.Errorf("non-finite output at feature %d", i)}
		}
	}
	return out, nil
}

// ScalerBundle is the set of fitted transforms shipped with a model.
type ScalerBundle struct {
	Format            ScalerFormat    `json:"format"`
	Scaler            *StandardScaler `json:"scaler,omitempty"`
	Player            *StandardScaler `json:"player,omitempty"`
	Delta             *StandardScaler `json:"delta,omitempty"`
	DeltaFeatureNames []string        `json:"delta_feature_names,omitempty"`

	deltaOrder []int
}

// LoadScalerBundle reads and validates a scaler bundle file.
func LoadScalerBundle(path string) (*ScalerBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	b, err := ParseScalerBundle(data)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	return b, nil
}

// ParseScalerBundle decodes and validates a scaler bundle.
func ParseScalerBundle(data []byte) (*ScalerBundle, error) {
	var b ScalerBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode scaler bundle: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *ScalerBundle) validate() error {
	switch b.Format {
	case FormatFlat:
		return b.Scaler.validate("flat", features.FlatSize)
	case FormatSplit:
		if err := b.Player.validate("player", features.NumFeatures, features.FlatSize); err != nil {
			return err
		}
		if err := b.Delta.validate("delta", features.NumDeltaFeatures); err != nil {
			return err
		}
		order, err := features.DeltaOrder(b.DeltaFeatureNames)
		if err != nil {
			return fmt.Errorf("delta_feature_names: %w", err)
		}
		b.deltaOrder = order
		return nil
	case "":
		return fmt.Errorf("scaler bundle has no format tag")
	default:
		return fmt.Errorf("unknown scaler format %q", b.Format)
	}
}

// TransformFlat scales the legacy flattened vector.
func (b *ScalerBundle) TransformFlat(f *features.MatchFeatures) ([]float64, error) {
	if b.Format != FormatFlat {
		return nil, &TransformError{Stage: "flat", Err: fmt.Errorf("bundle format is %q", b.Format)}
	}
	return b.Scaler.Transform("flat", f.Flat())
}

// TransformRows scales the player matrix with the player scaler, either
// per column or over the flattened matrix, and returns it as rows.
func (b *ScalerBundle) TransformRows(f *features.MatchFeatures) ([][]float64, error) {
	if b.Format != FormatSplit {
		return nil, &TransformError{Stage: "player", Err: fmt.Errorf("bundle format is %q", b.Format)}
	}

	if len(b.Player.Mean) == features.FlatSize {
		flat, err := b.Player.Transform("player", f.Flat())
		if err != nil {
			return nil, err
		}
		rows := make([][]float64, features.MatrixRows)
		for i := range rows {
			rows[i] = flat[i*features.NumFeatures : (i+1)*features.NumFeatures]
		}
		return rows, nil
	}

	rows := make([][]float64, features.MatrixRows)
	for i, r := range f.Rows() {
		scaled, err := b.Player.Transform("player", r)
		if err != nil {
			return nil, err
		}
		rows[i] = scaled
	}
	return rows, nil
}

// TransformDelta reorders the delta vector into the fitted feature order
// and scales it.
func (b *ScalerBundle) TransformDelta(f *features.MatchFeatures) ([]float64, error) {
	if b.Format != FormatSplit {
		return nil, &TransformError{Stage: "delta", Err: fmt.Errorf("bundle format is %q", b.Format)}
	}
	ordered := make([]float64, len(b.deltaOrder))
	for i, idx := range b.deltaOrder {
		ordered[i] = f.Delta[idx]
	}
	return b.Delta.Transform("delta", ordered)
}
