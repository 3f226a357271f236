package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/cache"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/features"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/logic"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

// debug_player resolves nicknames and prints the feature row each one would
// contribute to a match.
//
//	WARGAMING_APP_ID=... go run ./tools/debug_player eu Nick1 Nick2
func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: debug_player <region> <nickname>...")
	}
	region := strings.ToLower(os.Args[1])
	names := os.Args[2:]

	appID := os.Getenv("WARGAMING_APP_ID")
	if appID == "" {
		appID = os.Getenv("WARGAMING_API_KEY")
	}
	tomatoURL := os.Getenv("TOMATO_API_BASE_URL")
	if tomatoURL == "" {
		tomatoURL = "https://api.tomato.gg/api"
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	wg := upstream.NewWargamingClient(upstream.WargamingConfig{AppID: appID, Timeout: 20 * time.Second})
	tomato := upstream.NewTomatoClient(upstream.TomatoConfig{BaseURL: tomatoURL, Timeout: 20 * time.Second})

	ctx := context.Background()
	resolver := logic.NewIdentityResolver(wg, cache.Nop{}, logger)
	collector := logic.NewStatCollector(tomato, cache.Nop{}, 20*time.Second, logger)

	accounts, missing := resolver.Resolve(ctx, names, region)
	stats, failed := collector.Collect(ctx, accounts, region)
	for name, reason := range failed {
		missing[name] = reason
	}

	for _, name := range names {
		if reason, ok := missing[name]; ok {
			fmt.Printf("%-24s missing: %s\n", name, reason)
			continue
		}
		st, ok := stats[name]
		if !ok {
			continue
		}
		row := features.Row(st)
		fmt.Printf("%-24s account=%d\n", name, accounts[name])
		for i, col := range features.FeatureColumns {
			fmt.Printf("    %-12s %12.2f\n", col, row[i])
		}
	}
}
