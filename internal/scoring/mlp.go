package scoring

import (
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// legacyMLP is the original flat model: the scaled 390 vector and the map
// embedding go through one dense stack under net.*.
type legacyMLP struct {
	embedding *nn.Embedding
	net       *nn.Sequential
}

func newLegacyMLP(w Weights) (*legacyMLP, error) {
	emb, err := buildEmbedding(w)
	if err != nil {
		return nil, err
	}
	net, err := buildHead(w, "net", features.FlatSize+emb.Dim)
	if err != nil {
		return nil, err
	}
	return &legacyMLP{embedding: emb, net: net}, nil
}

func (m *legacyMLP) Architecture() Architecture { return ArchLegacyMLP }

func (m *legacyMLP) MapEmbeddings() int { return m.embedding.Num }

func (m *legacyMLP) Logit(in *Input) float64 {
	x := nn.Concat(in.Flat, mapVector(m.embedding, in))
	return m.net.Forward(x)[0]
}
