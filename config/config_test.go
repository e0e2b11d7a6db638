package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REDIS_URL", "DATABASE_URL", "TICK_INTERVAL_MS", "SIM_SEED", "PATTERN_CHANCE", "FALSE_SIGNAL_CHANCE", "STARTING_CASH", "REDIS_DB"} {
		t.Setenv(key, "")
	}

	cfg := Load("does-not-exist.env")

	if cfg.Port != ServerPort {
		t.Errorf("expected port %s, got %s", ServerPort, cfg.Port)
	}
	if cfg.TickInterval != TickInterval {
		t.Errorf("expected tick interval %v, got %v", TickInterval, cfg.TickInterval)
	}
	if cfg.PatternChance != PatternChance {
		t.Errorf("expected pattern chance %v, got %v", PatternChance, cfg.PatternChance)
	}
	if cfg.StartingCash != StartingCash {
		t.Errorf("expected starting cash %d, got %d", StartingCash, cfg.StartingCash)
	}
	if cfg.Addr() != ServerHost+":"+ServerPort {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DATABASE_URL", "postgres://localhost/market")
	t.Setenv("TICK_INTERVAL_MS", "250")
	t.Setenv("SIM_SEED", "classroom-7")
	t.Setenv("PATTERN_CHANCE", "0.5")
	t.Setenv("FALSE_SIGNAL_CHANCE", "0")
	t.Setenv("STARTING_CASH", "50000")

	cfg := Load("does-not-exist.env")

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.RedisURL != "redis:6379" || cfg.RedisDB != 3 {
		t.Errorf("unexpected redis config: %s db=%d", cfg.RedisURL, cfg.RedisDB)
	}
	if cfg.DatabaseURL != "postgres://localhost/market" {
		t.Errorf("unexpected database url %s", cfg.DatabaseURL)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.TickInterval)
	}
	if cfg.Seed != "classroom-7" {
		t.Errorf("expected seed classroom-7, got %s", cfg.Seed)
	}
	if cfg.PatternChance != 0.5 || cfg.FalseSignalChance != 0 {
		t.Errorf("unexpected probabilities %v %v", cfg.PatternChance, cfg.FalseSignalChance)
	}
	if cfg.StartingCash != 50000 {
		t.Errorf("expected starting cash 50000, got %d", cfg.StartingCash)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TICK_INTERVAL_MS", "fast")
	t.Setenv("PATTERN_CHANCE", "1.5")
	t.Setenv("STARTING_CASH", "-10")
	t.Setenv("REDIS_DB", "x")

	cfg := Load("does-not-exist.env")

	if cfg.TickInterval != TickInterval {
		t.Errorf("malformed interval should keep default, got %v", cfg.TickInterval)
	}
	if cfg.PatternChance != PatternChance {
		t.Errorf("out-of-range probability should keep default, got %v", cfg.PatternChance)
	}
	if cfg.StartingCash != StartingCash {
		t.Errorf("negative cash should keep default, got %d", cfg.StartingCash)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("malformed redis db should keep 0, got %d", cfg.RedisDB)
	}
}

func TestInstrumentCatalogue(t *testing.T) {
	if len(Instruments) != 10 {
		t.Fatalf("expected 10 instruments, got %d", len(Instruments))
	}
	seen := make(map[string]bool)
	for _, in := range Instruments {
		if seen[in.Symbol] {
			t.Errorf("duplicate symbol %s", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.Price < PriceFloor {
			t.Errorf("%s starts below the floor: %v", in.Symbol, in.Price)
		}
	}
}
