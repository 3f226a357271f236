package scoring

import (
	"fmt"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// attention projects and layer-normalises every player, scores it with
// attn = Linear, tanh, Linear, and classifies [A, B, A-B, map, delta].
type attention struct {
	embedding *nn.Embedding
	proj      *nn.Sequential
	norm      *nn.LayerNorm
	score     *nn.Sequential
	head      *nn.Sequential
}

func newAttention(w Weights) (*attention, error) {
	emb, err := buildEmbedding(w)
	if err != nil {
		return nil, err
	}
	proj, err := buildStack(w, "player_proj", features.NumFeatures, true)
	if err != nil {
		return nil, err
	}
	d := proj.OutDim()
	norm, err := buildLayerNorm(w, "player_norm", d)
	if err != nil {
		return nil, err
	}

	hidden, err := buildLinear(w, "attn.0", d)
	if err != nil {
		return nil, err
	}
	out, err := buildLinear(w, "attn.2", hidden.OutDim())
	if err != nil {
		return nil, err
	}
	if out.OutDim() != 1 {
		return nil, fmt.Errorf("attn.2: outputs %d values, want 1", out.OutDim())
	}
	score := nn.NewSequential(d, hidden, nn.NewTanh(hidden.OutDim()), out)

	head, err := buildHead(w, "head", 3*d+emb.Dim+features.NumDeltaFeatures)
	if err != nil {
		return nil, err
	}
	return &attention{embedding: emb, proj: proj, norm: norm, score: score, head: head}, nil
}

func (m *attention) Architecture() Architecture { return ArchAttention }

func (m *attention) MapEmbeddings() int { return m.embedding.Num }

func (m *attention) encodeTeam(in *Input, team int) (pooled, weights []float64) {
	rows, mask := teamRows(in, team)
	d := m.norm.OutDim()
	h := make([][]float64, len(rows))
	scores := make([]float64, len(rows))
	for i, r := range rows {
		if !mask[i] {
			h[i] = make([]float64, d)
			continue
		}
		h[i] = m.norm.Forward(m.proj.Forward(r))
		scores[i] = m.score.Forward(h[i])[0]
	}
	weights = nn.MaskedSoftmax(scores, mask)
	return nn.WeightedSum(h, weights, d), weights
}

func (m *attention) PoolWeights(in *Input) ([]float64, []float64) {
	_, w1 := m.encodeTeam(in, 1)
	_, w2 := m.encodeTeam(in, 2)
	return w1, w2
}

func (m *attention) Logit(in *Input) float64 {
	a, _ := m.encodeTeam(in, 1)
	b, _ := m.encodeTeam(in, 2)
	x := nn.Concat(a, b, nn.Sub(a, b), mapVector(m.embedding, in), in.Delta)
	return m.head.Forward(x)[0]
}
