package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
)

// inspect_artifacts loads the scoring artifacts the API would load and
// scores an empty match as a smoke test.
func main() {
	loader := &scoring.FileLoader{
		ModelPath:    getEnv("MODEL_PATH", "model/wot_model.safetensors"),
		ScalerPath:   getEnv("SCALER_PATH", "model/scaler.json"),
		MapIndexPath: getEnv("MAP_INDEX_PATH", "model/map_index.json"),
		Logger:       zap.NewNop(),
	}

	weights, err := scoring.LoadSafetensors(loader.ModelPath)
	if err != nil {
		log.Fatalf("Failed to read weights: %v", err)
	}
	fmt.Printf("Tensors in %s:\n", loader.ModelPath)
	for _, name := range weights.Names() {
		fmt.Printf("    %-40s %v\n", name, weights[name].Shape)
	}

	a, err := loader.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to load artifacts: %v", err)
	}

	fmt.Printf("Architecture:  %s\n", a.Architecture)
	fmt.Printf("Scaler format: %s\n", a.Scalers.Format)
	fmt.Printf("Known maps:    %d (embedding rows %d)\n", a.Vocabulary.Len(), a.NumMaps)

	f := features.Encode(nil, nil, 0, a)
	p, err := scoring.Score(f, a)
	if err != nil {
		log.Fatalf("Empty match failed to score: %v", err)
	}
	fmt.Printf("Empty match:   team 1 wins with p=%.4f\n", p)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
