package scoring

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// maxHeaderSize bounds the JSON header of a weights file.
const maxHeaderSize = 100 << 20

// Tensor is a dense parameter widened to float64.
type Tensor struct {
	Shape []int
	Data  []float64
}

// Dim returns the size of axis i, or 0 when the tensor has fewer axes.
func (t *Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 0
	}
	return t.Shape[i]
}

// Weights is a state dict keyed by parameter name.
type Weights map[string]*Tensor

// Names returns the parameter names in sorted order.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for n := range w {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasPrefix reports whether any parameter name starts with prefix.
func (w Weights) HasPrefix(prefix string) bool {
	for n := range w {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// LoadSafetensors reads a weights file in the safetensors format.
func LoadSafetensors(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	w, err := ParseSafetensors(data)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	return w, nil
}

// ParseSafetensors decodes an in-memory safetensors buffer: an 8 byte
// little-endian header length, a JSON header, then the raw tensor bytes.
func ParseSafetensors(data []byte) (Weights, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too short")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	if n > maxHeaderSize || n > uint64(len(data)-8) {
		return nil, fmt.Errorf("safetensors: invalid header length %d", n)
	}
	headerEnd := 8 + int(n)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &raw); err != nil {
		return nil, fmt.Errorf("safetensors: decode header: %w", err)
	}

	body := data[headerEnd:]
	weights := make(Weights, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var h tensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}
		t, err := decodeTensor(h, body)
		if err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}
		weights[name] = t
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("safetensors: no tensors")
	}
	return weights, nil
}

func decodeTensor(h tensorHeader, body []byte) (*Tensor, error) {
	count := 1
	for _, d := range h.Shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", h.Shape)
		}
		count *= d
	}

	begin, end := h.DataOffsets[0], h.DataOffsets[1]
	if begin < 0 || end < begin || end > int64(len(body)) {
		return nil, fmt.Errorf("data offsets [%d, %d] outside buffer of %d bytes", begin, end, len(body))
	}
	buf := body[begin:end]

	size, decode, err := dtypeDecoder(h.DType)
	if err != nil {
		return nil, err
	}
	if len(buf) != count*size {
		return nil, fmt.Errorf("%d bytes do not hold %d %s values", len(buf), count, h.DType)
	}

	out := make([]float64, count)
	for i := range out {
		out[i] = decode(buf[i*size : (i+1)*size])
	}
	return &Tensor{Shape: h.Shape, Data: out}, nil
}

func dtypeDecoder(dtype string) (int, func([]byte) float64, error) {
	switch dtype {
	case "F64":
		return 8, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	case "F32":
		return 4, func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case "BF16":
		return 2, func(b []byte) float64 {
			return float64(math.Float32frombits(uint32(binary.LittleEndian.Uint16(b)) << 16))
		}, nil
	case "F16":
		return 2, func(b []byte) float64 {
			return halfToFloat(binary.LittleEndian.Uint16(b))
		}, nil
	case "I64":
		return 8, func(b []byte) float64 {
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}, nil
	case "I32":
		return 4, func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b)))
		}, nil
	case "I16":
		return 2, func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b)))
		}, nil
	case "I8":
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case "U8", "BOOL":
		return 1, func(b []byte) float64 { return float64(b[0]) }, nil
	default:
		return 0, nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

func halfToFloat(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h>>10) & 0x1f
	frac := float64(h & 0x3ff)

	switch exp {
	case 0:
		return sign * math.Ldexp(frac, -24)
	case 0x1f:
		if frac == 0 {
			return math.Inf(int(sign))
		}
		return math.NaN()
	default:
		return sign * math.Ldexp(1+frac/1024, exp-15)
	}
}
