package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"marketSimServer/config"
	"marketSimServer/db"
)

func main() {
	limit := flag.Int("limit", 10, "number of recent games to list")
	runID := flag.String("run", "", "print the trades of one run")
	live := flag.Bool("live", false, "print the leaderboard mirrored in Redis")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *live {
		if err := db.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
			log.Fatalf("Failed to init redis: %v", err)
		}
		defer db.CloseRedis()

		board, err := db.GetLeaderboard(ctx, *limit)
		if err != nil {
			log.Fatalf("Failed to get leaderboard: %v", err)
		}
		fmt.Printf("Live leaderboard (%d entries):\n", len(board))
		for i, e := range board {
			fmt.Printf("  #%d %-20s %12.2f\n", i+1, e.Name, e.Value)
		}
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if err := db.InitPostgres(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	if *runID != "" {
		result, err := db.GetGameResult(ctx, *runID)
		if err != nil {
			log.Fatalf("Failed to get game result: %v", err)
		}
		if result == nil {
			log.Fatalf("No game found for run %s", *runID)
		}
		fmt.Printf("Run %s ended %s at tick %d\n", result.RunID, result.EndedAt.Format(time.RFC3339), result.FinalTick)
		fmt.Printf("  seed hash: %s\n", result.SeedHash)
		fmt.Printf("  winner:    %q (%.2f)\n\n", result.Winner, result.Return)

		trades, err := db.GetTrades(ctx, *runID)
		if err != nil {
			log.Fatalf("Failed to get trades: %v", err)
		}
		fmt.Printf("Trades (%d):\n", len(trades))
		for _, t := range trades {
			fmt.Printf("  tick %4d %-12s %-4s %5d %-6s @ %10.2f (%s)\n", t.Tick, t.Username, t.Side, t.Quantity, t.Symbol, t.Price, t.Source)
		}
		return
	}

	results, err := db.GetRecentResults(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to get game results: %v", err)
	}
	fmt.Printf("Recent games (%d):\n", len(results))
	for _, r := range results {
		fmt.Printf("  %s  %s  winner %q %.2f (%d players)\n", r.EndedAt.Format("2006-01-02 15:04"), r.RunID, r.Winner, r.Return, len(r.Leaderboard))
	}
}
