package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"marketSimServer/config"
	"marketSimServer/engine"
	"marketSimServer/game"
	"marketSimServer/state"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// GameResultRecord is an archived finished game.
type GameResultRecord struct {
	RunID       string                   `json:"runId"`
	SeedHash    string                   `json:"seedHash"`
	Winner      string                   `json:"winner"`
	Return      float64                  `json:"return"`
	FinalTick   int                      `json:"finalTick"`
	Leaderboard []state.LeaderboardEntry `json:"leaderboard"`
	Candles     map[string][]game.Candle `json:"candles,omitempty"`
	EndedAt     time.Time                `json:"endedAt"`
}

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Println("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		PostgresPool.Close()
		PostgresPool = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// HealthCheckPostgres pings the database
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return PostgresPool.Ping(ctx)
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	tradesSchema := `
	CREATE TABLE IF NOT EXISTS trades (
		id SERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		username TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		price NUMERIC(18, 2) NOT NULL,
		source TEXT NOT NULL,
		tick INTEGER NOT NULL,
		executed_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	ALTER TABLE trades ALTER COLUMN quantity TYPE BIGINT;

	CREATE INDEX IF NOT EXISTS idx_trades_run_id ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_username ON trades(username);
	`

	if _, err := PostgresPool.Exec(ctx, tradesSchema); err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	resultsSchema := `
	CREATE TABLE IF NOT EXISTS game_results (
		id SERIAL PRIMARY KEY,
		run_id TEXT NOT NULL UNIQUE,
		seed_hash TEXT NOT NULL DEFAULT '',
		winner TEXT NOT NULL,
		return_value NUMERIC(18, 2) NOT NULL,
		final_tick INTEGER NOT NULL,
		leaderboard JSONB NOT NULL,
		candles JSONB NOT NULL,
		ended_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_game_results_ended_at ON game_results(ended_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, resultsSchema); err != nil {
		return fmt.Errorf("failed to create game_results table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   TRADES
========================= */

// StoreTrade inserts one executed trade
func StoreTrade(ctx context.Context, t engine.TradeRecord) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
		INSERT INTO trades
		(run_id, username, symbol, side, quantity, price, source, tick, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := PostgresPool.Exec(ctx, query,
		t.RunID,
		t.Username,
		t.Symbol,
		string(t.Side),
		t.Quantity,
		t.Price,
		t.Source,
		t.Tick,
		t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store trade: %w", err)
	}
	return nil
}

// GetTrades returns every trade of a run in execution order
func GetTrades(ctx context.Context, runID string) ([]engine.TradeRecord, error) {
	if PostgresPool == nil {
		return []engine.TradeRecord{}, nil
	}

	query := `
		SELECT run_id, username, symbol, side, quantity, price::float8, source, tick, executed_at
		FROM trades
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := PostgresPool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []engine.TradeRecord
	for rows.Next() {
		var t engine.TradeRecord
		var side string
		if err := rows.Scan(&t.RunID, &t.Username, &t.Symbol, &side, &t.Quantity, &t.Price, &t.Source, &t.Tick, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t.Side = state.Side(side)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return trades, nil
}

/* =========================
   GAME RESULTS
========================= */

// StoreGameResult archives a finished game
func StoreGameResult(ctx context.Context, r engine.GameResult) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping game result storage")
		return nil
	}

	leaderboardJSON, err := json.Marshal(r.Leaderboard)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	candlesJSON, err := json.Marshal(r.Candles)
	if err != nil {
		return fmt.Errorf("failed to marshal candles: %w", err)
	}

	query := `
		INSERT INTO game_results
		(run_id, seed_hash, winner, return_value, final_tick, leaderboard, candles, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = PostgresPool.Exec(ctx, query,
		r.RunID,
		r.SeedHash,
		r.Winner,
		r.Return,
		r.FinalTick,
		leaderboardJSON,
		candlesJSON,
		r.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store game result: %w", err)
	}

	log.Printf("✅ Stored game result - Run: %s, Winner: %q (%.2f)", r.RunID, r.Winner, r.Return)
	return nil
}

// GetGameResult retrieves one archived game including its candles
func GetGameResult(ctx context.Context, runID string) (*GameResultRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query := `
		SELECT run_id, seed_hash, winner, return_value::float8, final_tick, leaderboard, candles, ended_at
		FROM game_results
		WHERE run_id = $1
	`

	var record GameResultRecord
	var leaderboardJSON, candlesJSON []byte
	err := PostgresPool.QueryRow(ctx, query, runID).Scan(
		&record.RunID,
		&record.SeedHash,
		&record.Winner,
		&record.Return,
		&record.FinalTick,
		&leaderboardJSON,
		&candlesJSON,
		&record.EndedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}

	if err := json.Unmarshal(leaderboardJSON, &record.Leaderboard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaderboard: %w", err)
	}
	if err := json.Unmarshal(candlesJSON, &record.Candles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candles: %w", err)
	}
	return &record, nil
}

// GetRecentResults retrieves the N most recent games without their candles
func GetRecentResults(ctx context.Context, limit int) ([]*GameResultRecord, error) {
	if PostgresPool == nil {
		return []*GameResultRecord{}, nil
	}

	query := `
		SELECT run_id, seed_hash, winner, return_value::float8, final_tick, leaderboard, ended_at
		FROM game_results
		ORDER BY ended_at DESC
		LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %w", err)
	}
	defer rows.Close()

	records := []*GameResultRecord{}
	for rows.Next() {
		var record GameResultRecord
		var leaderboardJSON []byte
		if err := rows.Scan(
			&record.RunID,
			&record.SeedHash,
			&record.Winner,
			&record.Return,
			&record.FinalTick,
			&leaderboardJSON,
			&record.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(leaderboardJSON, &record.Leaderboard); err != nil {
			return nil, fmt.Errorf("failed to unmarshal leaderboard: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

/* =========================
   ASYNC ARCHIVE
========================= */

type archiveJob struct {
	trade  *engine.TradeRecord
	result *engine.GameResult
}

// Archive records trades and results off the engine goroutine. Without a
// connected pool every call is a no-op.
type Archive struct {
	queue chan archiveJob

	closeOnce sync.Once
	done      chan struct{}
}

// NewArchive starts the archive writer when PostgreSQL is connected.
func NewArchive() *Archive {
	a := &Archive{done: make(chan struct{})}
	if PostgresPool == nil {
		close(a.done)
		return a
	}
	a.queue = make(chan archiveJob, config.ArchiveBuffer)
	go a.run()
	return a
}

// Enabled reports whether records reach the database.
func (a *Archive) Enabled() bool { return a.queue != nil }

// RecordTrade queues t; a full queue drops it.
func (a *Archive) RecordTrade(t engine.TradeRecord) {
	a.enqueue(archiveJob{trade: &t})
}

// RecordGameResult queues r; a full queue drops it.
func (a *Archive) RecordGameResult(r engine.GameResult) {
	a.enqueue(archiveJob{result: &r})
}

func (a *Archive) enqueue(job archiveJob) {
	if a.queue == nil {
		return
	}
	select {
	case a.queue <- job:
	default:
		log.Println("⚠️  Archive queue full, dropping record")
	}
}

func (a *Archive) run() {
	defer close(a.done)
	for job := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), config.ArchiveTimeout)
		var err error
		switch {
		case job.trade != nil:
			err = StoreTrade(ctx, *job.trade)
		case job.result != nil:
			err = StoreGameResult(ctx, *job.result)
		}
		cancel()
		if err != nil {
			log.Printf("⚠️  Failed to archive record: %v", err)
		}
	}
}

// Close waits for queued records to be written. The engine must have stopped
// first.
func (a *Archive) Close() {
	a.closeOnce.Do(func() {
		if a.queue != nil {
			close(a.queue)
		}
	})
	<-a.done
}
