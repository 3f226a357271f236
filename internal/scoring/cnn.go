package scoring

import (
	"fmt"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// poolRows is the row-axis max pool window of each conv block.
const poolRows = 2

type convBlock struct {
	conv *nn.Conv2D
	bn   *nn.BatchNorm
}

// cnn reads the 30 x 13 matrix as a one channel image. Each block is
// conv, optional batch norm, ReLU and a (2,1) max pool; padding rows are
// zeroed after every block and never take part in pooling.
type cnn struct {
	embedding *nn.Embedding
	blocks    []convBlock
	head      *nn.Sequential
}

func newCNN(w Weights) (*cnn, error) {
	emb, err := buildEmbedding(w)
	if err != nil {
		return nil, err
	}

	layers, err := sequentialLayers(w, "conv")
	if err != nil {
		return nil, err
	}

	m := &cnn{embedding: emb}
	channels := 1
	for _, l := range layers {
		switch l.kind {
		case kindConv:
			c, err := buildConv(w, l.prefix, channels)
			if err != nil {
				return nil, err
			}
			m.blocks = append(m.blocks, convBlock{conv: c})
			channels = c.OutC
		case kindBatchNorm:
			if len(m.blocks) == 0 || m.blocks[len(m.blocks)-1].bn != nil {
				return nil, fmt.Errorf("%s: batch norm without a preceding conv", l.prefix)
			}
			bn, err := buildBatchNorm(w, l.prefix, channels)
			if err != nil {
				return nil, err
			}
			m.blocks[len(m.blocks)-1].bn = bn
		default:
			return nil, fmt.Errorf("%s: unexpected layer in conv tower", l.prefix)
		}
	}

	head, err := buildHead(w, "head", channels+emb.Dim+features.NumDeltaFeatures)
	if err != nil {
		return nil, err
	}
	m.head = head
	return m, nil
}

func (m *cnn) Architecture() Architecture { return ArchCNN }

func (m *cnn) MapEmbeddings() int { return m.embedding.Num }

func (m *cnn) Logit(in *Input) float64 {
	mask := in.Mask[:]
	g := nn.GridFromRows(in.Rows).ZeroRows(mask)

	for _, b := range m.blocks {
		g = b.conv.Forward(g)
		if b.bn != nil {
			g = b.bn.ForwardGrid(g)
		}
		g = g.ReLU()
		if g.H >= poolRows {
			g, mask = nn.MaxPoolRows(g, mask, poolRows)
		}
		g = g.ZeroRows(mask)
	}

	pooled := nn.MaskedGlobalAvgPool(g, mask)
	x := nn.Concat(pooled, mapVector(m.embedding, in), in.Delta)
	return m.head.Forward(x)[0]
}
