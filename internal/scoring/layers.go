package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/nn"
)

// param returns the named tensor and checks its shape. A -1 dimension
// matches anything.
func param(w Weights, name string, shape ...int) (*Tensor, error) {
	t, ok := w[name]
	if !ok {
		return nil, fmt.Errorf("missing parameter %s", name)
	}
	if len(t.Shape) != len(shape) {
		return nil, fmt.Errorf("%s: shape %v, want %d dims", name, t.Shape, len(shape))
	}
	for i, d := range shape {
		if d >= 0 && t.Shape[i] != d {
			return nil, fmt.Errorf("%s: shape %v, want %v", name, t.Shape, shape)
		}
	}
	return t, nil
}

// optionalParam is param for tensors that may be absent, like a bias.
func optionalParam(w Weights, name string, shape ...int) ([]float64, error) {
	if _, ok := w[name]; !ok {
		return nil, nil
	}
	t, err := param(w, name, shape...)
	if err != nil {
		return nil, err
	}
	return t.Data, nil
}

func buildLinear(w Weights, prefix string, in int) (*nn.Linear, error) {
	wt, err := param(w, prefix+".weight", -1, in)
	if err != nil {
		return nil, err
	}
	out := wt.Dim(0)
	bias, err := optionalParam(w, prefix+".bias", out)
	if err != nil {
		return nil, err
	}
	return nn.NewLinear(in, out, wt.Data, bias)
}

func buildBatchNorm(w Weights, prefix string, n int) (*nn.BatchNorm, error) {
	mean, err := param(w, prefix+".running_mean", n)
	if err != nil {
		return nil, err
	}
	variance, err := param(w, prefix+".running_var", n)
	if err != nil {
		return nil, err
	}
	gamma, err := optionalParam(w, prefix+".weight", n)
	if err != nil {
		return nil, err
	}
	beta, err := optionalParam(w, prefix+".bias", n)
	if err != nil {
		return nil, err
	}
	return nn.NewBatchNorm(gamma, beta, mean.Data, variance.Data, nn.DefaultEps)
}

func buildLayerNorm(w Weights, prefix string, n int) (*nn.LayerNorm, error) {
	gamma, err := param(w, prefix+".weight", n)
	if err != nil {
		return nil, err
	}
	beta, err := param(w, prefix+".bias", n)
	if err != nil {
		return nil, err
	}
	return nn.NewLayerNorm(gamma.Data, beta.Data, nn.DefaultEps)
}

func buildConv(w Weights, prefix string, inC int) (*nn.Conv2D, error) {
	wt, err := param(w, prefix+".weight", -1, inC, -1, -1)
	if err != nil {
		return nil, err
	}
	outC := wt.Dim(0)
	bias, err := optionalParam(w, prefix+".bias", outC)
	if err != nil {
		return nil, err
	}
	return nn.NewConv2D(inC, outC, wt.Dim(2), wt.Dim(3), wt.Data, bias)
}

type layerKind int

const (
	kindLinear layerKind = iota
	kindBatchNorm
	kindLayerNorm
	kindConv
)

type indexedLayer struct {
	index  int
	prefix string
	kind   layerKind
}

// sequentialLayers lists the parametrised children of a torch Sequential
// stored under prefix, in index order. Parameter-free children (ReLU,
// Dropout, pooling) leave gaps in the indices.
func sequentialLayers(w Weights, prefix string) ([]indexedLayer, error) {
	seen := make(map[int]bool)
	for name := range w {
		rest, ok := strings.CutPrefix(name, prefix+".")
		if !ok {
			continue
		}
		head, _, _ := strings.Cut(rest, ".")
		idx, err := strconv.Atoi(head)
		if err != nil {
			return nil, fmt.Errorf("%s: unexpected parameter %s", prefix, name)
		}
		seen[idx] = true
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no parameters under %s", prefix)
	}

	layers := make([]indexedLayer, 0, len(seen))
	for idx := range seen {
		p := fmt.Sprintf("%s.%d", prefix, idx)
		l := indexedLayer{index: idx, prefix: p}
		wt, hasWeight := w[p+".weight"]
		_, hasStats := w[p+".running_mean"]
		switch {
		case hasStats:
			l.kind = kindBatchNorm
		case hasWeight && len(wt.Shape) == 4:
			l.kind = kindConv
		case hasWeight && len(wt.Shape) == 2:
			l.kind = kindLinear
		case hasWeight && len(wt.Shape) == 1:
			l.kind = kindLayerNorm
		default:
			return nil, fmt.Errorf("%s: cannot tell layer type", p)
		}
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].index < layers[j].index })
	return layers, nil
}

// buildStack assembles a dense torch Sequential. A ReLU follows every norm
// layer, and every Linear that is not followed by a norm layer, except the
// last Linear unless trailingReLU is set.
func buildStack(w Weights, prefix string, in int, trailingReLU bool) (*nn.Sequential, error) {
	layers, err := sequentialLayers(w, prefix)
	if err != nil {
		return nil, err
	}

	var out []nn.Layer
	dim := in
	for i, l := range layers {
		last := i == len(layers)-1
		nextIsNorm := !last && (layers[i+1].kind == kindBatchNorm || layers[i+1].kind == kindLayerNorm)

		switch l.kind {
		case kindLinear:
			lin, err := buildLinear(w, l.prefix, dim)
			if err != nil {
				return nil, err
			}
			out = append(out, lin)
			dim = lin.OutDim()
			if !nextIsNorm && (!last || trailingReLU) {
				out = append(out, nn.NewReLU(dim))
			}
		case kindBatchNorm:
			bn, err := buildBatchNorm(w, l.prefix, dim)
			if err != nil {
				return nil, err
			}
			out = append(out, bn, nn.NewReLU(dim))
		case kindLayerNorm:
			ln, err := buildLayerNorm(w, l.prefix, dim)
			if err != nil {
				return nil, err
			}
			out = append(out, ln, nn.NewReLU(dim))
		default:
			return nil, fmt.Errorf("%s: convolution in a dense stack", l.prefix)
		}
	}
	return nn.NewSequential(in, out...), nil
}

func buildEmbedding(w Weights) (*nn.Embedding, error) {
	t, err := param(w, MapEmbeddingParam, -1, -1)
	if err != nil {
		return nil, err
	}
	return nn.NewEmbedding(t.Dim(0), t.Dim(1), t.Data)
}

// buildHead builds the classifier head and checks it ends in one logit.
func buildHead(w Weights, prefix string, in int) (*nn.Sequential, error) {
	head, err := buildStack(w, prefix, in, false)
	if err != nil {
		return nil, err
	}
	if head.OutDim() != 1 {
		return nil, fmt.Errorf("%s: outputs %d values, want 1", prefix, head.OutDim())
	}
	return head, nil
}
