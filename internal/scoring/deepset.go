package scoring

import (
	"fmt"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// deepSet encodes every player with the shared phi.* stack, pools each team
// with a learned softmax over pool(h), and classifies
// [A, B, A-B, A*B, map, delta].
type deepSet struct {
	embedding *nn.Embedding
	phi       *nn.Sequential
	pool      *nn.Linear
	head      *nn.Sequential
}

func newDeepSet(w Weights) (*deepSet, error) {
	emb, err := buildEmbedding(w)
	if err != nil {
		return nil, err
	}
	phi, err := buildStack(w, "phi", features.NumFeatures, true)
	if err != nil {
		return nil, err
	}
	d := phi.OutDim()
	pool, err := buildLinear(w, "pool", d)
	if err != nil {
		return nil, err
	}
	if pool.OutDim() != 1 {
		return nil, fmt.Errorf("pool: outputs %d values, want 1", pool.OutDim())
	}
	head, err := buildHead(w, "head", 4*d+emb.Dim+features.NumDeltaFeatures)
	if err != nil {
		return nil, err
	}
	return &deepSet{embedding: emb, phi: phi, pool: pool, head: head}, nil
}

func (m *deepSet) Architecture() Architecture { return ArchDeepSet }

func (m *deepSet) MapEmbeddings() int { return m.embedding.Num }

func (m *deepSet) encodeTeam(in *Input, team int) (pooled, weights []float64) {
	rows, mask := teamRows(in, team)
	h := make([][]float64, len(rows))
	scores := make([]float64, len(rows))
	for i, r := range rows {
		if !mask[i] {
			h[i] = make([]float64, m.phi.OutDim())
			continue
		}
		h[i] = m.phi.Forward(r)
		scores[i] = m.pool.Forward(h[i])[0]
	}
	weights = nn.MaskedSoftmax(scores, mask)
	return nn.WeightedSum(h, weights, m.phi.OutDim()), weights
}

func (m *deepSet) PoolWeights(in *Input) ([]float64, []float64) {
	_, w1 := m.encodeTeam(in, 1)
	_, w2 := m.encodeTeam(in, 2)
	return w1, w2
}

func (m *deepSet) Logit(in *Input) float64 {
	a, _ := m.encodeTeam(in, 1)
	b, _ := m.encodeTeam(in, 2)
	x := nn.Concat(a, b, nn.Sub(a, b), nn.Mul(a, b), mapVector(m.embedding, in), in.Delta)
	return m.head.Forward(x)[0]
}
