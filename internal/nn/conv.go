package nn

import (
	"fmt"
	"math"
)

// Grid is a C x H x W activation volume stored channel-major.
type Grid struct {
	C, H, W int
	Data    []float64
}

func NewGrid(c, h, w int) *Grid {
	return &Grid{C: c, H: h, W: w, Data: make([]float64, c*h*w)}
}

// GridFromRows builds a single channel grid from equal-length rows.
func GridFromRows(rows [][]float64) *Grid {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	g := NewGrid(1, h, w)
	for i, r := range rows {
		copy(g.Data[i*w:(i+1)*w], r)
	}
	return g
}

func (g *Grid) At(c, h, w int) float64 {
	return g.Data[(c*g.H+h)*g.W+w]
}

func (g *Grid) set(c, h, w int, v float64) {
	g.Data[(c*g.H+h)*g.W+w] = v
}

// ReLU returns a rectified copy of g.
func (g *Grid) ReLU() *Grid {
	out := NewGrid(g.C, g.H, g.W)
	for i, v := range g.Data {
		out.Data[i] = relu(v)
	}
	return out
}

// Conv2D is a stride 1 convolution with "same" padding. Weight layout is
// [out][in][kh][kw].
type Conv2D struct {
	InC, OutC, KH, KW int
	weight            []float64
	bias              []float64
}

func NewConv2D(inC, outC, kh, kw int, weight, bias []float64) (*Conv2D, error) {
	if inC <= 0 || outC <= 0 || kh <= 0 || kw <= 0 {
		return nil, fmt.Errorf("conv2d: invalid shape [%d %d %d %d]", outC, inC, kh, kw)
	}
	if len(weight) != outC*inC*kh*kw {
		return nil, fmt.Errorf("conv2d: weight has %d values, want %d", len(weight), outC*inC*kh*kw)
	}
	if bias == nil {
		bias = make([]float64, outC)
	}
	if len(bias) != outC {
		return nil, fmt.Errorf("conv2d: bias has %d values, want %d", len(bias), outC)
	}
	return &Conv2D{InC: inC, OutC: outC, KH: kh, KW: kw, weight: weight, bias: bias}, nil
}

func (c *Conv2D) Forward(g *Grid) *Grid {
	if g.C != c.InC {
		panic(fmt.Sprintf("conv2d: grid has %d channels, want %d", g.C, c.InC))
	}
	// PyTorch puts the extra pad of an even kernel on the bottom/right
	padTop := (c.KH - 1) / 2
	padLeft := (c.KW - 1) / 2

	out := NewGrid(c.OutC, g.H, g.W)
	for o := 0; o < c.OutC; o++ {
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				sum := c.bias[o]
				for i := 0; i < c.InC; i++ {
					for ky := 0; ky < c.KH; ky++ {
						sy := y + ky - padTop
						if sy < 0 || sy >= g.H {
							continue
						}
						for kx := 0; kx < c.KW; kx++ {
							sx := x + kx - padLeft
							if sx < 0 || sx >= g.W {
								continue
							}
							w := c.weight[((o*c.InC+i)*c.KH+ky)*c.KW+kx]
							sum += w * g.At(i, sy, sx)
						}
					}
				}
				out.set(o, y, x, sum)
			}
		}
	}
	return out
}

// MaxPoolRows pools k consecutive rows with stride k over the rows where
// mask is true, leaving columns untouched. A window without a valid row
// yields zeros and is invalid in the returned mask. Trailing rows that do
// not fill a window are dropped.
func MaxPoolRows(g *Grid, mask []bool, k int) (*Grid, []bool) {
	if len(mask) != g.H {
		panic(fmt.Sprintf("maxpool: mask has %d rows, grid has %d", len(mask), g.H))
	}
	h := g.H / k
	out := NewGrid(g.C, h, g.W)
	outMask := make([]bool, h)
	for y := 0; y < h; y++ {
		for j := 0; j < k; j++ {
			if mask[y*k+j] {
				outMask[y] = true
			}
		}
		if !outMask[y] {
			continue
		}
		for c := 0; c < g.C; c++ {
			for x := 0; x < g.W; x++ {
				best := math.Inf(-1)
				for j := 0; j < k; j++ {
					if !mask[y*k+j] {
						continue
					}
					if v := g.At(c, y*k+j, x); v > best {
						best = v
					}
				}
				out.set(c, y, x, best)
			}
		}
	}
	return out, outMask
}

// ZeroRows returns a copy of g with every row outside mask set to 0.
func (g *Grid) ZeroRows(mask []bool) *Grid {
	out := NewGrid(g.C, g.H, g.W)
	copy(out.Data, g.Data)
	for c := 0; c < g.C; c++ {
		for y := 0; y < g.H; y++ {
			if mask[y] {
				continue
			}
			for x := 0; x < g.W; x++ {
				out.set(c, y, x, 0)
			}
		}
	}
	return out
}

// MaskedGlobalAvgPool averages every channel over valid rows and all
// columns. With no valid row the result is zero.
func MaskedGlobalAvgPool(g *Grid, mask []bool) []float64 {
	if len(mask) != g.H {
		panic(fmt.Sprintf("avgpool: mask has %d rows, grid has %d", len(mask), g.H))
	}
	out := make([]float64, g.C)
	valid := 0
	for _, m := range mask {
		if m {
			valid++
		}
	}
	if valid == 0 {
		return out
	}
	n := float64(valid * g.W)
	for c := 0; c < g.C; c++ {
		var sum float64
		for y := 0; y < g.H; y++ {
			if !mask[y] {
				continue
			}
			for x := 0; x < g.W; x++ {
				sum += g.At(c, y, x)
			}
		}
		out[c] = sum / n
	}
	return out
}
