package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Vocabulary maps raw map ids to embedding indices.
type Vocabulary struct {
	index map[int64]int
	size  int
}

// LoadVocabulary reads a {"<map_id>": index} JSON file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	return v, nil
}

// ParseVocabulary decodes a map vocabulary. Keys that are not integers and
// negative indices are skipped; an empty result is an error.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode map vocabulary: %w", err)
	}

	v := &Vocabulary{index: make(map[int64]int, len(raw))}
	for key, idx := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil || idx < 0 {
			continue
		}
		v.index[id] = idx
		if idx+1 > v.size {
			v.size = idx + 1
		}
	}
	if len(v.index) == 0 {
		return nil, fmt.Errorf("map vocabulary is empty")
	}
	return v, nil
}

func (v *Vocabulary) Index(mapID int64) (int, bool) {
	idx, ok := v.index[mapID]
	return idx, ok
}

// Size is the highest index plus one.
func (v *Vocabulary) Size() int { return v.size }

func (v *Vocabulary) Len() int { return len(v.index) }
