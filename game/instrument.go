package game

import (
	"fmt"
	"math"

	"marketSimServer/config"
)

// ProcessConfig holds the tunables of the per-instrument price process.
type ProcessConfig struct {
	Floor         float64
	Decimals      int
	WalkDelta     float64
	Jitter        float64
	PatternChance float64
	CandleWindow  int
	WindowSize    int
	WindowSeeds   int
	MaxHistory    int
	Indicators    IndicatorConfig
}

// DefaultProcessConfig mirrors the constants in the config package.
func DefaultProcessConfig() ProcessConfig {
	return ProcessConfig{
		Floor:         config.PriceFloor,
		Decimals:      config.PriceDecimals,
		WalkDelta:     config.WalkDelta,
		Jitter:        config.PatternJitter,
		PatternChance: config.PatternChance,
		CandleWindow:  config.CandleWindow,
		WindowSize:    config.RawWindowSize,
		WindowSeeds:   config.RawWindowSeeds,
		MaxHistory:    config.MaxCandleHistory,
		Indicators: IndicatorConfig{
			RSIPeriod:         config.RSIPeriod,
			TrendWindow:       config.TrendWindow,
			MACDFast:          config.MACDFast,
			MACDSlow:          config.MACDSlow,
			FalseSignalChance: config.FalseSignalChance,
		},
	}
}

// Instrument is one simulated stock. It is not safe for concurrent use; the
// engine goroutine owns every instrument.
type Instrument struct {
	Symbol string
	Name   string

	cfg     ProcessConfig
	price   float64
	window  *PriceWindow
	candle  OHLC
	history []Candle

	// script is the remaining pattern targets; nil means random walk.
	script  []float64
	pattern PatternKind
}

// NewInstrument creates an instrument at price, clamped to the floor and
// rounded to the configured resolution.
func NewInstrument(symbol, name string, price float64, cfg ProcessConfig) (*Instrument, error) {
	if symbol == "" {
		return nil, fmt.Errorf("instrument symbol is required")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("instrument %s: invalid starting price %v", symbol, price)
	}
	if cfg.CandleWindow < 1 {
		return nil, fmt.Errorf("instrument %s: candle window must be positive", symbol)
	}

	in := &Instrument{
		Symbol: symbol,
		Name:   name,
		cfg:    cfg,
		window: NewPriceWindow(cfg.WindowSize),
	}
	in.price = in.normalize(price)
	for i := 0; i < cfg.WindowSeeds; i++ {
		in.window.Push(in.price)
	}
	in.candle = flatOHLC(in.price)
	return in, nil
}

func (in *Instrument) normalize(p float64) float64 {
	if p < in.cfg.Floor {
		p = in.cfg.Floor
	}
	return RoundToDecimal(p, in.cfg.Decimals)
}

// Price returns the current price.
func (in *Instrument) Price() float64 { return in.price }

// Candle returns the in-progress candle.
func (in *Instrument) Candle() OHLC { return in.candle }

// RawPrices returns the raw window oldest first.
func (in *Instrument) RawPrices() []float64 { return in.window.Values() }

// History returns a copy of the closed candles, oldest first.
func (in *Instrument) History() []Candle {
	out := make([]Candle, len(in.history))
	copy(out, in.history)
	return out
}

// ActivePattern reports the running pattern and how many targets remain.
func (in *Instrument) ActivePattern() (PatternKind, int) {
	if len(in.script) == 0 {
		return "", 0
	}
	return in.pattern, len(in.script)
}

// SetPattern replaces any running script with a freshly generated one.
func (in *Instrument) SetPattern(rng Rand, kind PatternKind) error {
	targets, err := GeneratePattern(rng, in.price, kind, in.cfg.CandleWindow)
	if err != nil {
		return err
	}
	in.script = targets
	in.pattern = kind
	return nil
}

// ClearPattern abandons the running script; the next tick random-walks.
func (in *Instrument) ClearPattern() {
	in.script = nil
	in.pattern = ""
}

// MaybeStartPattern rolls the pattern trial on candle boundaries when no
// script is running.
func (in *Instrument) MaybeStartPattern(rng Rand, tick int) (PatternKind, bool) {
	if len(in.script) > 0 || tick%in.cfg.CandleWindow != 0 {
		return "", false
	}
	if !Chance(rng, in.cfg.PatternChance) {
		return "", false
	}
	kind := Patterns[rng.Intn(len(Patterns))]
	if err := in.SetPattern(rng, kind); err != nil {
		return "", false
	}
	return kind, true
}

// Advance produces the next price: the next pattern target plus jitter when
// a script is running, a bounded random walk otherwise. The result is
// clamped, rounded, pushed into the raw window and folded into the candle.
func (in *Instrument) Advance(rng Rand) float64 {
	var next float64
	if len(in.script) > 0 {
		target := in.script[0]
		in.script = in.script[1:]
		if len(in.script) == 0 {
			in.script = nil
			in.pattern = ""
		}
		next = target + Uniform(rng, -in.cfg.Jitter, in.cfg.Jitter)
	} else {
		next = in.price + Uniform(rng, -in.cfg.WalkDelta, in.cfg.WalkDelta)
	}

	in.price = in.normalize(next)
	in.window.Push(in.price)
	in.candle.Update(in.price)
	return in.price
}

// IsCandleBoundary reports whether tick closes a candle.
func (in *Instrument) IsCandleBoundary(tick int) bool {
	return tick > 0 && tick%in.cfg.CandleWindow == 0
}

// CloseCandle seals the in-progress candle at tick, attaches indicators and
// opens a new flat candle at the current price. The bool reports a false
// signal perturbation of the attached RSI.
func (in *Instrument) CloseCandle(rng Rand, tick int) (Candle, bool) {
	ind, falseSignal := ComputeIndicators(rng, in.window.Values(), in.cfg.Indicators)
	c := Candle{
		Time:       tick,
		Open:       in.candle.Open,
		High:       in.candle.High,
		Low:        in.candle.Low,
		Close:      in.candle.Close,
		Indicators: ind,
	}

	in.history = append(in.history, c)
	if in.cfg.MaxHistory > 0 && len(in.history) > in.cfg.MaxHistory {
		in.history = append([]Candle(nil), in.history[len(in.history)-in.cfg.MaxHistory:]...)
	}
	in.candle = flatOHLC(in.price)
	return c, falseSignal
}
