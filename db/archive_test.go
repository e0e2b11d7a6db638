package db

import (
	"context"
	"os"
	"testing"
	"time"

	"marketSimServer/engine"
	"marketSimServer/game"
	"marketSimServer/state"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func TestArchiveWithoutDatabase(t *testing.T) {
	if PostgresPool != nil {
		t.Skip("PostgreSQL is connected")
	}

	a := NewArchive()
	if a.Enabled() {
		t.Fatal("archive must be disabled without a pool")
	}

	done := make(chan struct{})
	go func() {
		a.RecordTrade(engine.TradeRecord{Username: "alice"})
		a.RecordGameResult(engine.GameResult{Winner: "alice"})
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled archive must never block")
	}

	results, err := GetRecentResults(context.Background(), 10)
	if err != nil || len(results) != 0 {
		t.Errorf("expected no results, got %v %v", results, err)
	}
	if r, err := GetGameResult(context.Background(), "missing"); r != nil || err != nil {
		t.Errorf("expected nil result, got %v %v", r, err)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	_ = godotenv.Load("../.env")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := InitPostgres(databaseURL); err != nil {
		t.Fatalf("Failed to init postgres: %v", err)
	}
	defer func() {
		ClosePostgres()
		PostgresPool = nil
	}()

	ctx := context.Background()
	runID := "test-" + uuid.NewString()
	defer func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM trades WHERE run_id = $1", runID)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM game_results WHERE run_id = $1", runID)
	}()

	a := NewArchive()
	if !a.Enabled() {
		t.Fatal("archive must be enabled with a pool")
	}
	a.RecordTrade(engine.TradeRecord{
		RunID: runID, Username: "alice", Symbol: "RELIANCE", Side: state.SideBuy,
		Quantity: 10, Price: 2450, Source: engine.SourceMarket, Tick: 12, ExecutedAt: time.Now(),
	})
	// wider than a 32-bit column
	a.RecordTrade(engine.TradeRecord{
		RunID: runID, Username: "bob", Symbol: "ITC", Side: state.SideSell,
		Quantity: 3000000000, Price: 445, Source: engine.SourceStopLoss, Tick: 14, ExecutedAt: time.Now(),
	})
	a.RecordGameResult(engine.GameResult{
		RunID:       runID,
		Winner:      "alice",
		Return:      1000123.45,
		FinalTick:   3600,
		Leaderboard: []state.LeaderboardEntry{{Name: "alice", Value: 1000123.45}},
		Candles:     map[string][]game.Candle{"RELIANCE": {{Time: 10, Open: 2450, High: 2451, Low: 2449, Close: 2450.5}}},
		EndedAt:     time.Now(),
	})
	a.Close()

	t.Run("Trades", func(t *testing.T) {
		trades, err := GetTrades(ctx, runID)
		if err != nil {
			t.Fatalf("GetTrades failed: %v", err)
		}
		if len(trades) != 2 || trades[0].Price != 2450 || trades[0].Side != state.SideBuy {
			t.Fatalf("unexpected trades %+v", trades)
		}
		if trades[1].Quantity != 3000000000 || trades[1].Source != engine.SourceStopLoss {
			t.Errorf("large quantity did not round-trip: %+v", trades[1])
		}
	})

	t.Run("GameResult", func(t *testing.T) {
		r, err := GetGameResult(ctx, runID)
		if err != nil || r == nil {
			t.Fatalf("GetGameResult failed: %v", err)
		}
		if r.Winner != "alice" || r.Return != 1000123.45 || r.FinalTick != 3600 {
			t.Errorf("unexpected result %+v", r)
		}
		if c := r.Candles["RELIANCE"]; len(c) != 1 || c[0].Close != 2450.5 {
			t.Errorf("candles did not round-trip: %+v", r.Candles)
		}
	})

	t.Run("RecentResults", func(t *testing.T) {
		results, err := GetRecentResults(ctx, 50)
		if err != nil {
			t.Fatalf("GetRecentResults failed: %v", err)
		}
		for _, r := range results {
			if r.RunID == runID {
				return
			}
		}
		t.Errorf("run %s missing from recent results", runID)
	})
}
