// Package nn implements the inference-only building blocks the scoring
// models are assembled from. Everything runs in eval mode: batch norm uses
// its running statistics and there is no dropout.
package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultEps matches the epsilon PyTorch uses for its norm layers.
const DefaultEps = 1e-5

// Layer transforms one feature vector.
type Layer interface {
	Forward(x []float64) []float64
	OutDim() int
}

// Linear is y = Wx + b with W stored row-major as [out][in].
type Linear struct {
	in, out int
	weight  *mat.Dense
	bias    []float64
}

func NewLinear(in, out int, weight, bias []float64) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("linear: invalid shape %dx%d", out, in)
	}
	if len(weight) != in*out {
		return nil, fmt.Errorf("linear: weight has %d values, want %d", len(weight), in*out)
	}
	if bias == nil {
		bias = make([]float64, out)
	}
	if len(bias) != out {
		return nil, fmt.Errorf("linear: bias has %d values, want %d", len(bias), out)
	}
	w := make([]float64, len(weight))
	copy(w, weight)
	return &Linear{in: in, out: out, weight: mat.NewDense(out, in, w), bias: bias}, nil
}

func (l *Linear) InDim() int  { return l.in }
func (l *Linear) OutDim() int { return l.out }

func (l *Linear) Forward(x []float64) []float64 {
	if len(x) != l.in {
		panic(fmt.Sprintf("linear: input has %d values, want %d", len(x), l.in))
	}
	var y mat.VecDense
	y.MulVec(l.weight, mat.NewVecDense(l.in, x))
	out := make([]float64, l.out)
	for i := range out {
		out[i] = y.AtVec(i) + l.bias[i]
	}
	return out
}

// BatchNorm normalises with frozen running statistics. It applies to plain
// vectors and, per channel, to grids.
type BatchNorm struct {
	scale []float64
	shift []float64
}

func NewBatchNorm(gamma, beta, mean, variance []float64, eps float64) (*BatchNorm, error) {
	n := len(mean)
	if n == 0 || len(variance) != n {
		return nil, fmt.Errorf("batchnorm: running stats have %d/%d values", len(mean), len(variance))
	}
	if gamma == nil {
		gamma = ones(n)
	}
	if beta == nil {
		beta = make([]float64, n)
	}
	if len(gamma) != n || len(beta) != n {
		return nil, fmt.Errorf("batchnorm: affine params have %d/%d values, want %d", len(gamma), len(beta), n)
	}

	// fold into y = x*scale + shift
	bn := &BatchNorm{scale: make([]float64, n), shift: make([]float64, n)}
	for i := 0; i < n; i++ {
		if variance[i] < 0 {
			return nil, fmt.Errorf("batchnorm: negative running variance at %d", i)
		}
		s := gamma[i] / math.Sqrt(variance[i]+eps)
		bn.scale[i] = s
		bn.shift[i] = beta[i] - mean[i]*s
	}
	return bn, nil
}

func (b *BatchNorm) OutDim() int { return len(b.scale) }

func (b *BatchNorm) Forward(x []float64) []float64 {
	if len(x) != len(b.scale) {
		panic(fmt.Sprintf("batchnorm: input has %d values, want %d", len(x), len(b.scale)))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*b.scale[i] + b.shift[i]
	}
	return out
}

// ForwardGrid normalises each channel of g.
func (b *BatchNorm) ForwardGrid(g *Grid) *Grid {
	if g.C != len(b.scale) {
		panic(fmt.Sprintf("batchnorm: grid has %d channels, want %d", g.C, len(b.scale)))
	}
	out := NewGrid(g.C, g.H, g.W)
	plane := g.H * g.W
	for c := 0; c < g.C; c++ {
		s, t := b.scale[c], b.shift[c]
		for i := c * plane; i < (c+1)*plane; i++ {
			out.Data[i] = g.Data[i]*s + t
		}
	}
	return out
}

// LayerNorm normalises over the whole vector.
type LayerNorm struct {
	gamma, beta []float64
	eps         float64
}

func NewLayerNorm(gamma, beta []float64, eps float64) (*LayerNorm, error) {
	if len(gamma) == 0 || len(gamma) != len(beta) {
		return nil, fmt.Errorf("layernorm: params have %d/%d values", len(gamma), len(beta))
	}
	return &LayerNorm{gamma: gamma, beta: beta, eps: eps}, nil
}

func (l *LayerNorm) OutDim() int { return len(l.gamma) }

func (l *LayerNorm) Forward(x []float64) []float64 {
	if len(x) != len(l.gamma) {
		panic(fmt.Sprintf("layernorm: input has %d values, want %d", len(x), len(l.gamma)))
	}
	n := float64(len(x))
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	variance /= n

	inv := 1 / math.Sqrt(variance+l.eps)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v-mean)*inv*l.gamma[i] + l.beta[i]
	}
	return out
}

// Activation is an elementwise layer of a fixed width.
type Activation struct {
	dim int
	fn  func(float64) float64
}

func NewReLU(dim int) *Activation { return &Activation{dim: dim, fn: relu} }
func NewTanh(dim int) *Activation { return &Activation{dim: dim, fn: math.Tanh} }

func (a *Activation) OutDim() int { return a.dim }

func (a *Activation) Forward(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = a.fn(v)
	}
	return out
}

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// Sequential chains layers.
type Sequential struct {
	in     int
	layers []Layer
}

func NewSequential(in int, layers ...Layer) *Sequential {
	return &Sequential{in: in, layers: layers}
}

func (s *Sequential) InDim() int { return s.in }

func (s *Sequential) OutDim() int {
	if len(s.layers) == 0 {
		return s.in
	}
	return s.layers[len(s.layers)-1].OutDim()
}

func (s *Sequential) Len() int { return len(s.layers) }

func (s *Sequential) Forward(x []float64) []float64 {
	for _, l := range s.layers {
		x = l.Forward(x)
	}
	return x
}

// Embedding is a lookup table of Num vectors of width Dim.
type Embedding struct {
	Num, Dim int
	weight   []float64
}

func NewEmbedding(num, dim int, weight []float64) (*Embedding, error) {
	if num <= 0 || dim <= 0 || len(weight) != num*dim {
		return nil, fmt.Errorf("embedding: %d values do not fit %dx%d", len(weight), num, dim)
	}
	return &Embedding{Num: num, Dim: dim, weight: weight}, nil
}

// Lookup returns a copy of row idx. Out of range indices fall back to row 0.
func (e *Embedding) Lookup(idx int) []float64 {
	if idx < 0 || idx >= e.Num {
		idx = 0
	}
	out := make([]float64, e.Dim)
	copy(out, e.weight[idx*e.Dim:(idx+1)*e.Dim])
	return out
}

// Sigmoid is the numerically stable logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
