package scoring

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

// encodeSafetensors writes w as a little-endian F64 safetensors buffer.
func encodeSafetensors(t *testing.T, w Weights) []byte {
	t.Helper()
	return encodeSafetensorsAs(t, w, func(string) string { return "F64" })
}

// encodeSafetensorsAs writes w with the dtype chosen per tensor name, the way
// torch exports F32 parameters next to I64 batch counters.
func encodeSafetensorsAs(t *testing.T, w Weights, dtype func(name string) string) []byte {
	t.Helper()

	names := w.Names()
	header := make(map[string]any, len(names))
	var body bytes.Buffer
	for _, n := range names {
		tensor := w[n]
		begin := body.Len()
		dt := dtype(n)
		for _, v := range tensor.Data {
			switch dt {
			case "F64":
				binary.Write(&body, binary.LittleEndian, math.Float64bits(v))
			case "F32":
				binary.Write(&body, binary.LittleEndian, math.Float32bits(float32(v)))
			case "I64":
				binary.Write(&body, binary.LittleEndian, int64(v))
			default:
				t.Fatalf("encode %s: unhandled dtype %s", n, dt)
			}
		}
		header[n] = map[string]any{
			"dtype":        dt,
			"shape":        tensor.Shape,
			"data_offsets": []int{begin, body.Len()},
		}
	}
	header["__metadata__"] = map[string]string{"format": "pt"}

	h, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint64(len(h)))
	out.Write(h)
	out.Write(body.Bytes())
	return out.Bytes()
}

// fill returns n deterministic values in [-0.5, 0.5).
func fill(n int, seed uint32) []float64 {
	out := make([]float64, n)
	x := seed*2654435761 + 1
	for i := range out {
		x = x*1664525 + 1013904223
		out[i] = float64(x>>8)/float64(1<<24) - 0.5
	}
	return out
}

func tensor(seed uint32, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: shape, Data: fill(n, seed)}
}

func constTensor(v float64, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return &Tensor{Shape: shape, Data: data}
}

func addBatchNorm(w Weights, prefix string, n int, seed uint32) {
	w[prefix+".weight"] = tensor(seed, n)
	w[prefix+".bias"] = tensor(seed+1, n)
	w[prefix+".running_mean"] = tensor(seed+2, n)
	w[prefix+".running_var"] = constTensor(1.5, n)
	w[prefix+".num_batches_tracked"] = constTensor(10)
}

func addLinear(w Weights, prefix string, in, out int, seed uint32) {
	w[prefix+".weight"] = tensor(seed, out, in)
	w[prefix+".bias"] = tensor(seed+1, out)
}

const (
	testMaps   = 4
	testEmbDim = 3
)

func legacyWeights() Weights {
	w := Weights{MapEmbeddingParam: tensor(1, testMaps, testEmbDim)}
	addLinear(w, "net.0", features.FlatSize+testEmbDim, 8, 2)
	addBatchNorm(w, "net.1", 8, 4)
	addLinear(w, "net.4", 8, 4, 8)
	addLinear(w, "net.6", 4, 1, 10)
	return w
}

func cnnWeights() Weights {
	w := Weights{MapEmbeddingParam: tensor(1, testMaps, testEmbDim)}
	w["conv.0.weight"] = tensor(2, 2, 1, 3, 3)
	w["conv.0.bias"] = tensor(3, 2)
	addBatchNorm(w, "conv.1", 2, 4)
	w["conv.4.weight"] = tensor(8, 3, 2, 3, 1)
	addLinear(w, "head.0", 3+testEmbDim+features.NumDeltaFeatures, 4, 10)
	addLinear(w, "head.2", 4, 1, 12)
	return w
}

func deepSetWeights() Weights {
	w := Weights{MapEmbeddingParam: tensor(1, testMaps, testEmbDim)}
	addLinear(w, "phi.0", features.NumFeatures, 5, 2)
	addLinear(w, "phi.2", 5, 4, 4)
	addLinear(w, "pool", 4, 1, 6)
	addLinear(w, "head.0", 4*4+testEmbDim+features.NumDeltaFeatures, 3, 8)
	addLinear(w, "head.2", 3, 1, 10)
	return w
}

func attentionWeights() Weights {
	w := Weights{MapEmbeddingParam: tensor(1, testMaps, testEmbDim)}
	addLinear(w, "player_proj.0", features.NumFeatures, 4, 2)
	w["player_norm.weight"] = constTensor(1, 4)
	w["player_norm.bias"] = constTensor(0, 4)
	addLinear(w, "attn.0", 4, 3, 4)
	addLinear(w, "attn.2", 3, 1, 6)
	addLinear(w, "head.0", 3*4+testEmbDim+features.NumDeltaFeatures, 1, 8)
	return w
}

func scalerVector(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func flatBundle() *ScalerBundle {
	return &ScalerBundle{
		Format: FormatFlat,
		Scaler: &StandardScaler{Mean: scalerVector(features.FlatSize, 100), Scale: scalerVector(features.FlatSize, 1000)},
	}
}

func splitBundle(t *testing.T) *ScalerBundle {
	t.Helper()
	names := features.DeltaFeatureNames
	b := ScalerBundle{
		Format:            FormatSplit,
		Player:            &StandardScaler{Mean: scalerVector(features.NumFeatures, 100), Scale: scalerVector(features.NumFeatures, 1000)},
		Delta:             &StandardScaler{Mean: scalerVector(features.NumDeltaFeatures, 0), Scale: scalerVector(features.NumDeltaFeatures, 500)},
		DeltaFeatureNames: names[:],
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	parsed, err := ParseScalerBundle(data)
	if err != nil {
		t.Fatalf("ParseScalerBundle: %v", err)
	}
	return parsed
}

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := ParseVocabulary([]byte(`{"19": 1, "23": 2, "7": 3}`))
	if err != nil {
		t.Fatalf("ParseVocabulary: %v", err)
	}
	return v
}

func testArtifacts(t *testing.T, w Weights) *Artifacts {
	t.Helper()
	arch, err := DetectArchitecture(w.Names())
	if err != nil {
		t.Fatalf("DetectArchitecture: %v", err)
	}
	bundle := flatBundle()
	if arch != ArchLegacyMLP {
		bundle = splitBundle(t)
	}
	a, err := NewArtifacts(w, bundle, testVocabulary(t), zap.NewNop())
	if err != nil {
		t.Fatalf("NewArtifacts: %v", err)
	}
	return a
}

func roster(seed uint32, n int) []*models.PlayerStats {
	vals := fill(n*3, seed)
	out := make([]*models.PlayerStats, n)
	for i := range out {
		out[i] = &models.PlayerStats{
			Battles:    models.Float(5000 + vals[i*3]*8000),
			OverallWN8: models.Float(1500 + vals[i*3+1]*2000),
			Winrate:    models.Float(50 + vals[i*3+2]*10),
			DPG:        models.Float(1200),
			XP:         models.Float(600),
			KD:         models.Float(1.1),
		}
	}
	return out
}
