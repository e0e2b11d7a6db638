package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"marketSimServer/api"
	"marketSimServer/config"
	"marketSimServer/crypto"
	"marketSimServer/db"
	"marketSimServer/engine"
	"marketSimServer/ws"
)

func main() {
	cfg := config.Load()

	seed, seedHash, err := crypto.RunSeed(cfg.Seed)
	if err != nil {
		log.Fatal("❌ Failed to create run seed:", err)
	}
	log.Printf("🎲 Run seed committed - hash: %s", seedHash)

	// Initialize database connections
	if err := db.InitPostgres(cfg.DatabaseURL); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Trades and game results will not be archived")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Events will not be mirrored to Redis")
	}
	defer db.CloseRedis()

	hub := ws.NewHub()
	publishers := []engine.Publisher{hub}

	var redisPub *db.RedisPublisher
	if db.RedisClient != nil {
		redisPub = db.NewRedisPublisher(db.RedisClient)
		publishers = append(publishers, redisPub)
	}

	archive := db.NewArchive()

	opts := engine.OptionsFromConfig(cfg)
	opts.Seed = seed
	opts.SeedHash = seedHash

	market, err := engine.New(opts, archive, publishers...)
	if err != nil {
		log.Fatal("❌ Failed to create market engine:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := market.Run(ctx); err != nil {
			log.Printf("❌ Market engine stopped: %v", err)
			stop()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler(market))
	api.NewHandlers(market).Register(mux)

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on %s (run %s)", addr, market.RunID())
	log.Println("")
	log.Println("📡 WebSocket Endpoints:")
	log.Println("   /ws - join_game, place_order, admin_action")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/health - Health check (engine + Redis + PostgreSQL)")
	log.Println("   GET  /api/market - Market snapshot")
	log.Println("   GET  /api/leaderboard - Current standings")
	log.Println("   POST /api/admin - Start, pause, resume, inject patterns")
	log.Println("   GET  /api/results - Finished games")
	log.Println("   GET  /api/results/:runId - One finished game with its trades")
	log.Println("   GET  /api/verify?seed= - Check a revealed seed")
	log.Println("")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("👋 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}

	// Publishers drain only after the engine has stopped emitting.
	wg.Wait()
	if redisPub != nil {
		redisPub.Close()
	}
	archive.Close()
}
