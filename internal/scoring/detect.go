package scoring

import (
	"fmt"
	"strings"
)

// Architecture tags a scoring model variant.
type Architecture string

const (
	ArchLegacyMLP Architecture = "legacy-mlp"
	ArchCNN       Architecture = "cnn"
	ArchDeepSet   Architecture = "deepset"
	ArchAttention Architecture = "attention"
)

// MapEmbeddingParam is the map embedding table every variant carries.
const MapEmbeddingParam = "map_embedding.weight"

// detection order matters: attention checkpoints may also carry a head
// named like the other variants' encoders.
var archPrefixes = []struct {
	prefix string
	arch   Architecture
}{
	{"attn.", ArchAttention},
	{"phi.", ArchDeepSet},
	{"conv.", ArchCNN},
	{"net.", ArchLegacyMLP},
}

// DetectArchitecture classifies a checkpoint from its parameter names.
func DetectArchitecture(names []string) (Architecture, error) {
	hasEmbedding := false
	for _, n := range names {
		if n == MapEmbeddingParam {
			hasEmbedding = true
			break
		}
	}

	for _, p := range archPrefixes {
		for _, n := range names {
			if strings.HasPrefix(n, p.prefix) {
				if !hasEmbedding {
					return "", fmt.Errorf("%s checkpoint has no %s", p.arch, MapEmbeddingParam)
				}
				return p.arch, nil
			}
		}
	}
	return "", fmt.Errorf("unrecognised checkpoint: none of attn., phi., conv., net. in %d parameters", len(names))
}

// ScalerFormat returns the scaler bundle format the architecture expects.
func (a Architecture) ScalerFormat() ScalerFormat {
	if a == ArchLegacyMLP {
		return FormatFlat
	}
	return FormatSplit
}
