package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration assembled from constants, .env and
// environment variables.
type Config struct {
	Host string
	Port string

	RedisURL      string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	TickInterval      time.Duration
	Seed              string
	PatternChance     float64
	FalseSignalChance float64
	StartingCash      int64
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Host:              ServerHost,
		Port:              ServerPort,
		RedisURL:          "",
		TickInterval:      TickInterval,
		PatternChance:     PatternChance,
		FalseSignalChance: FalseSignalChance,
		StartingCash:      StartingCash,
	}
}

// Load reads .env (if present) and applies environment overrides on top of
// Default. Malformed numeric values are logged and ignored.
func Load(envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	cfg := Default()
	applyEnvOverrides(&cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		} else {
			log.Printf("⚠️  Ignoring REDIS_DB=%q: %v", v, err)
		}
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.TickInterval = time.Duration(ms) * time.Millisecond
		} else {
			log.Printf("⚠️  Ignoring TICK_INTERVAL_MS=%q", v)
		}
	}

	cfg.Seed = os.Getenv("SIM_SEED")

	if v, ok := probability("PATTERN_CHANCE"); ok {
		cfg.PatternChance = v
	}
	if v, ok := probability("FALSE_SIGNAL_CHANCE"); ok {
		cfg.FalseSignalChance = v
	}

	if v := os.Getenv("STARTING_CASH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.StartingCash = n
		} else {
			log.Printf("⚠️  Ignoring STARTING_CASH=%q", v)
		}
	}
}

// probability reads a float in [0, 1] from the environment.
func probability(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p < 0 || p > 1 {
		log.Printf("⚠️  Ignoring %s=%q (want a probability in [0,1])", key, v)
		return 0, false
	}
	return p, true
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
