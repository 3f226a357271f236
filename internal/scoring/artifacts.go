package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var artifactLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wot_artifact_loads_total",
	Help: "Scoring artifact load attempts by result",
}, []string{"result"})

// Artifacts is the immutable scoring bundle shared by every request.
type Artifacts struct {
	Architecture Architecture
	Model        Model
	Scalers      *ScalerBundle
	Vocabulary   *Vocabulary
	// NumMaps is the embedding table size, taken from the model.
	NumMaps int
}

// MapIndex resolves a map id. Ids whose index falls outside the model's
// embedding table count as unknown.
func (a *Artifacts) MapIndex(mapID int64) (int, bool) {
	idx, ok := a.Vocabulary.Index(mapID)
	if !ok || idx >= a.NumMaps {
		return 0, false
	}
	return idx, true
}

// NewArtifacts checks that the parts belong together and builds the model.
func NewArtifacts(weights Weights, scalers *ScalerBundle, vocab *Vocabulary, logger *zap.Logger) (*Artifacts, error) {
	arch, err := DetectArchitecture(weights.Names())
	if err != nil {
		return nil, &ArtifactError{Err: err}
	}
	if want := arch.ScalerFormat(); scalers.Format != want {
		return nil, artifactErr("", "%s model needs a %q scaler bundle, got %q", arch, want, scalers.Format)
	}

	model, err := BuildModel(arch, weights)
	if err != nil {
		return nil, &ArtifactError{Err: fmt.Errorf("build %s model: %w", arch, err)}
	}

	a := &Artifacts{
		Architecture: arch,
		Model:        model,
		Scalers:      scalers,
		Vocabulary:   vocab,
		NumMaps:      model.MapEmbeddings(),
	}
	if a.NumMaps != vocab.Size() {
		logger.Sugar().Warnw("Map embedding size differs from vocabulary",
			"embedding_size", a.NumMaps,
			"vocabulary_size", vocab.Size(),
		)
	}
	return a, nil
}

// Loader builds a fresh Artifacts value.
type Loader interface {
	Load(ctx context.Context) (*Artifacts, error)
}

// FileLoader reads the three artifact files from disk.
type FileLoader struct {
	ModelPath    string
	ScalerPath   string
	MapIndexPath string
	Logger       *zap.Logger
}

func (l *FileLoader) Load(ctx context.Context) (*Artifacts, error) {
	vocab, err := LoadVocabulary(l.MapIndexPath)
	if err != nil {
		return nil, err
	}
	scalers, err := LoadScalerBundle(l.ScalerPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	weights, err := LoadSafetensors(l.ModelPath)
	if err != nil {
		return nil, err
	}
	a, err := NewArtifacts(weights, scalers, vocab, l.Logger)
	if err != nil {
		var ae *ArtifactError
		if errors.As(err, &ae) && ae.Path == "" {
			ae.Path = l.ModelPath
		}
		return nil, err
	}
	return a, nil
}

// Store builds the artifacts once per process. A failed build is returned
// to the caller and retried by the next Get.
type Store struct {
	loader Loader
	logger *zap.SugaredLogger

	mu      sync.Mutex
	current atomic.Pointer[Artifacts]
}

func NewStore(loader Loader, logger *zap.Logger) *Store {
	return &Store{loader: loader, logger: logger.Sugar()}
}

func (s *Store) Get(ctx context.Context) (*Artifacts, error) {
	if a := s.current.Load(); a != nil {
		return a, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.current.Load(); a != nil {
		return a, nil
	}

	start := time.Now()
	a, err := s.loader.Load(ctx)
	if err != nil {
		artifactLoads.WithLabelValues("error").Inc()
		s.logger.Errorw("Failed to load scoring artifacts", "error", err)
		return nil, err
	}

	s.current.Store(a)
	artifactLoads.WithLabelValues("ok").Inc()
	s.logger.Infow("Scoring artifacts loaded",
		"architecture", a.Architecture,
		"scaler_format", a.Scalers.Format,
		"maps", a.NumMaps,
		"duration", time.Since(start),
	)
	return a, nil
}

// Loaded reports whether a build has succeeded.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}
