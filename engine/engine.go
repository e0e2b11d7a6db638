package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"marketSimServer/config"
	"marketSimServer/game"
	"marketSimServer/state"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownAction = errors.New("unknown admin action")
	ErrGameEnded     = errors.New("game has ended")
	ErrStopped       = errors.New("engine is not running")
	ErrCommandFailed = errors.New("command failed")
)

// Options configures an Engine.
type Options struct {
	TickInterval     time.Duration
	TicksPerDay      int
	FinalDay         int
	LeaderboardEvery int
	CommandBuffer    int
	StartingCash     decimal.Decimal
	Instruments      []config.InstrumentSpec
	Process          game.ProcessConfig

	// Seed and SeedHash identify the random stream of this run. Rand, when
	// set, replaces the seeded generator.
	Seed     string
	SeedHash string
	Rand     game.Rand
}

// OptionsFromConfig builds engine options from the runtime configuration.
func OptionsFromConfig(cfg config.Config) Options {
	process := game.DefaultProcessConfig()
	process.PatternChance = cfg.PatternChance
	process.Indicators.FalseSignalChance = cfg.FalseSignalChance

	return Options{
		TickInterval:     cfg.TickInterval,
		TicksPerDay:      config.TicksPerDay,
		FinalDay:         config.FinalDay,
		LeaderboardEvery: config.LeaderboardEvery,
		CommandBuffer:    config.CommandBuffer,
		StartingCash:     decimal.NewFromInt(cfg.StartingCash),
		Instruments:      config.Instruments,
		Process:          process,
		Seed:             cfg.Seed,
	}
}

type outbound struct {
	to string // empty means broadcast
	ev Event
}

type command struct {
	fn   func()
	done chan error
}

// Engine owns every piece of game state. Run is the only goroutine that
// touches it; the exported command methods hand closures to that goroutine
// and wait for them to finish.
type Engine struct {
	opts  Options
	runID string
	rng   game.Rand

	instruments []*game.Instrument
	bySymbol    map[string]*game.Instrument
	clock       *state.Clock
	ledger      *state.Ledger
	book        *state.OrderBook

	publishers []Publisher
	recorder   Recorder

	pending []outbound

	inbox   chan command
	stopped chan struct{}
	running atomic.Bool
}

// New builds an engine in the lobby state. Publishers receive every event;
// recorder may be nil.
func New(opts Options, recorder Recorder, publishers ...Publisher) (*Engine, error) {
	if len(opts.Instruments) == 0 {
		return nil, fmt.Errorf("at least one instrument is required")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = config.TickInterval
	}
	if opts.LeaderboardEvery < 1 {
		opts.LeaderboardEvery = config.LeaderboardEvery
	}
	if opts.CommandBuffer < 1 {
		opts.CommandBuffer = config.CommandBuffer
	}

	e := &Engine{
		opts:       opts,
		runID:      uuid.NewString(),
		rng:        opts.Rand,
		bySymbol:   make(map[string]*game.Instrument, len(opts.Instruments)),
		clock:      state.NewClock(opts.TicksPerDay, opts.FinalDay),
		book:       state.NewOrderBook(),
		publishers: publishers,
		recorder:   recorder,
		inbox:      make(chan command, opts.CommandBuffer),
		stopped:    make(chan struct{}),
	}
	if e.rng == nil {
		e.rng = game.NewSeededRNG(opts.Seed)
	}

	symbols := make([]string, 0, len(opts.Instruments))
	for _, spec := range opts.Instruments {
		if _, dup := e.bySymbol[spec.Symbol]; dup {
			return nil, fmt.Errorf("duplicate instrument %s", spec.Symbol)
		}
		in, err := game.NewInstrument(spec.Symbol, spec.Name, spec.Price, opts.Process)
		if err != nil {
			return nil, fmt.Errorf("failed to create instrument: %w", err)
		}
		e.instruments = append(e.instruments, in)
		e.bySymbol[spec.Symbol] = in
		symbols = append(symbols, spec.Symbol)
	}
	e.ledger = state.NewLedger(opts.StartingCash, symbols)
	return e, nil
}

// RunID identifies this game run in archives.
func (e *Engine) RunID() string { return e.runID }

// Run drives the tick loop and serves commands until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer close(e.stopped)

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	log.Printf("🚀 Market engine started (run %s, %d instruments, tick %v)", e.runID, len(e.instruments), e.opts.TickInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("👋 Market engine stopped at tick %d", e.clock.Tick())
			return nil
		case <-ticker.C:
			e.safely("tick", e.tick)
			e.flush()
		case cmd := <-e.inbox:
			err := e.safely("command", cmd.fn)
			e.flush()
			cmd.done <- err
		}
	}
}

// safely runs fn and turns a panic into ErrCommandFailed so the loop
// survives it.
func (e *Engine) safely(what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Engine %s panicked at tick %d: %v", what, e.clock.Tick(), r)
			err = fmt.Errorf("%w: %v", ErrCommandFailed, r)
		}
	}()
	fn()
	return nil
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case e.inbox <- cmd:
	}

	select {
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.done:
		return err
	}
}

func (e *Engine) broadcast(t EventType, data any) {
	e.pending = append(e.pending, outbound{ev: Event{Type: t, Data: data}})
}

func (e *Engine) sendTo(username string, t EventType, data any) {
	e.pending = append(e.pending, outbound{to: username, ev: Event{Type: t, Data: data}})
}

// flush hands every buffered event to the publishers in emission order.
func (e *Engine) flush() {
	if len(e.pending) == 0 {
		return
	}
	for _, out := range e.pending {
		for _, p := range e.publishers {
			if out.to == "" {
				p.Broadcast(out.ev)
			} else {
				p.SendTo(out.to, out.ev)
			}
		}
	}
	e.pending = e.pending[:0]
}

func (e *Engine) statusPayload() GameStatusPayload {
	return GameStatusPayload{Status: e.clock.Status(), Day: e.clock.Day()}
}

func (e *Engine) prices() map[string]float64 {
	out := make(map[string]float64, len(e.instruments))
	for _, in := range e.instruments {
		out[in.Symbol] = in.Price()
	}
	return out
}

func (e *Engine) stocks() []StockView {
	out := make([]StockView, 0, len(e.instruments))
	for _, in := range e.instruments {
		kind, _ := in.ActivePattern()
		out = append(out, StockView{
			Symbol:  in.Symbol,
			Name:    in.Name,
			Price:   in.Price(),
			Candle:  in.Candle(),
			History: in.History(),
			Pattern: string(kind),
		})
	}
	return out
}
