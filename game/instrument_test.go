package game

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func testProcessConfig() ProcessConfig {
	cfg := DefaultProcessConfig()
	cfg.Indicators.FalseSignalChance = 0
	return cfg
}

func TestPriceWindow(t *testing.T) {
	w := NewPriceWindow(3)
	if _, ok := w.Last(); ok {
		t.Error("empty window should have no last value")
	}
	for i := 1; i <= 5; i++ {
		w.Push(float64(i))
	}
	if w.Len() != 3 || w.Cap() != 3 {
		t.Fatalf("expected len=cap=3, got len=%d cap=%d", w.Len(), w.Cap())
	}
	got := w.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if last, _ := w.Last(); last != 5 {
		t.Errorf("expected last 5, got %v", last)
	}
	got[0] = 99
	if w.Values()[0] != 3 {
		t.Error("Values must return a copy")
	}
}

func TestNewInstrument(t *testing.T) {
	cfg := testProcessConfig()

	in, err := NewInstrument("TCS", "Tata Consultancy", 3680, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Price() != 3680 {
		t.Errorf("expected 3680, got %v", in.Price())
	}
	if n := len(in.RawPrices()); n != cfg.WindowSeeds {
		t.Errorf("expected %d seeded samples, got %d", cfg.WindowSeeds, n)
	}
	if c := in.Candle(); c.Open != 3680 || c.High != 3680 || c.Low != 3680 || c.Close != 3680 {
		t.Errorf("expected flat candle, got %+v", c)
	}

	low, err := NewInstrument("PENNY", "", 0.2, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if low.Price() != cfg.Floor {
		t.Errorf("expected clamp to floor, got %v", low.Price())
	}

	if _, err := NewInstrument("", "", 10, cfg); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := NewInstrument("BAD", "", math.NaN(), cfg); err == nil {
		t.Error("expected error for NaN price")
	}
}

func TestInstrumentPatternScenario(t *testing.T) {
	in, err := NewInstrument("X", "", 100.00, testProcessConfig())
	if err != nil {
		t.Fatal(err)
	}
	rng := &fixedRand{f: 0.5}
	if err := in.SetPattern(rng, MarubozuBull); err != nil {
		t.Fatal(err)
	}
	if kind, left := in.ActivePattern(); kind != MarubozuBull || left != 10 {
		t.Fatalf("expected marubozu with 10 targets, got %s/%d", kind, left)
	}

	prev := in.Price()
	for i := 0; i < 10; i++ {
		p := in.Advance(rng)
		if p <= prev {
			t.Fatalf("step %d: expected rising price, %v -> %v", i, prev, p)
		}
		prev = p
	}
	if math.Abs(in.Price()-100.80) > 0.2 {
		t.Errorf("expected ≈100.80, got %v", in.Price())
	}
	if kind, left := in.ActivePattern(); kind != "" || left != 0 {
		t.Errorf("pattern should be exhausted, got %s/%d", kind, left)
	}

	// Back to a random walk; f=0.5 means a zero delta.
	if p := in.Advance(rng); p != prev {
		t.Errorf("expected zero walk delta, %v -> %v", prev, p)
	}
}

func TestInstrumentPatternReplacement(t *testing.T) {
	in, _ := NewInstrument("X", "", 100, testProcessConfig())
	rng := &fixedRand{f: 0.5}

	_ = in.SetPattern(rng, BullishEngulfing)
	in.Advance(rng)
	_ = in.SetPattern(rng, Hammer)
	if kind, left := in.ActivePattern(); kind != Hammer || left != 10 {
		t.Errorf("new pattern must replace the old script whole, got %s/%d", kind, left)
	}

	in.ClearPattern()
	if kind, left := in.ActivePattern(); kind != "" || left != 0 {
		t.Errorf("expected cleared pattern, got %s/%d", kind, left)
	}
}

func TestMaybeStartPattern(t *testing.T) {
	cfg := testProcessConfig()
	in, _ := NewInstrument("X", "", 100, cfg)

	if _, ok := in.MaybeStartPattern(&fixedRand{f: 0.1, n: 4}, 11); ok {
		t.Error("pattern must only start on candle boundaries")
	}
	if _, ok := in.MaybeStartPattern(&fixedRand{f: 0.9}, 10); ok {
		t.Error("failed trial must not start a pattern")
	}
	kind, ok := in.MaybeStartPattern(&fixedRand{f: 0.1, n: 4}, 10)
	if !ok || kind != MarubozuBull {
		t.Fatalf("expected marubozu_bull to start, got %s %v", kind, ok)
	}
	if _, ok := in.MaybeStartPattern(&fixedRand{f: 0.1, n: 0}, 20); ok {
		t.Error("a running pattern must not be replaced by the random trigger")
	}
}

func TestCloseCandle(t *testing.T) {
	cfg := testProcessConfig()
	in, _ := NewInstrument("X", "", 100, cfg)
	rng := &fixedRand{f: 0.5}

	_ = in.SetPattern(rng, Hammer)
	for tick := 1; tick <= cfg.CandleWindow; tick++ {
		in.Advance(rng)
		if in.IsCandleBoundary(tick) != (tick == cfg.CandleWindow) {
			t.Fatalf("unexpected boundary at tick %d", tick)
		}
	}

	c, _ := in.CloseCandle(rng, cfg.CandleWindow)
	if c.Time != cfg.CandleWindow {
		t.Errorf("expected candle time %d, got %d", cfg.CandleWindow, c.Time)
	}
	if c.Open != 100 || c.Low != 99.5 || c.Close != in.Price() {
		t.Errorf("unexpected candle %+v", c)
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		t.Errorf("candle invariant violated: %+v", c)
	}
	if len(in.History()) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(in.History()))
	}
	next := in.Candle()
	if next.Open != in.Price() || next.High != in.Price() || next.Low != in.Price() {
		t.Errorf("new candle must open flat at the latest price, got %+v", next)
	}
}

func TestCandleHistoryIsBounded(t *testing.T) {
	cfg := testProcessConfig()
	cfg.MaxHistory = 3
	in, _ := NewInstrument("X", "", 100, cfg)
	rng := &fixedRand{f: 0.5}
	for i := 1; i <= 5; i++ {
		in.CloseCandle(rng, i*cfg.CandleWindow)
	}
	h := in.History()
	if len(h) != 3 || h[0].Time != 3*cfg.CandleWindow {
		t.Errorf("expected the 3 newest candles, got %+v", h)
	}
}

func TestPriceProcessInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := testProcessConfig()
		start := rapid.Float64Range(1, 20).Draw(t, "start")
		seed := rapid.String().Draw(t, "seed")
		ticks := rapid.IntRange(1, 400).Draw(t, "ticks")
		rng := NewSeededRNG(seed)

		in, err := NewInstrument("X", "", start, cfg)
		if err != nil {
			t.Fatal(err)
		}
		for tick := 1; tick <= ticks; tick++ {
			in.MaybeStartPattern(rng, tick)
			p := in.Advance(rng)
			if p < cfg.Floor {
				t.Fatalf("tick %d: price %v below floor", tick, p)
			}
			if p != RoundToDecimal(p, cfg.Decimals) {
				t.Fatalf("tick %d: price %v not rounded", tick, p)
			}
			c := in.Candle()
			if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
				t.Fatalf("tick %d: in-progress candle invariant violated: %+v", tick, c)
			}
			if in.IsCandleBoundary(tick) {
				closed, _ := in.CloseCandle(rng, tick)
				if closed.Low > math.Min(closed.Open, closed.Close) || closed.High < math.Max(closed.Open, closed.Close) {
					t.Fatalf("closed candle invariant violated: %+v", closed)
				}
				if closed.Indicators.RSI < 0 || closed.Indicators.RSI > 100 {
					t.Fatalf("RSI out of bounds: %v", closed.Indicators.RSI)
				}
			}
			if in.window.Len() > cfg.WindowSize {
				t.Fatalf("raw window grew past capacity: %d", in.window.Len())
			}
		}
	})
}
