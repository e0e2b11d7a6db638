package engine

import (
	"fmt"
	"log"
	"time"

	"marketSimServer/game"
	"marketSimServer/state"
)

// tick advances the game by one step. Nothing happens unless the clock is
// active.
func (e *Engine) tick() {
	step, ok := e.clock.Advance()
	if !ok {
		return
	}

	if step.DayChanged {
		e.broadcast(EventDayChange, DayChangePayload{Day: step.Day})
		if !step.Ended {
			log.Printf("📅 Day %d begins (tick %d)", step.Day, step.Tick)
		}
	}
	if step.Ended {
		e.broadcast(EventGameStatus, e.statusPayload())
		e.finish(step.Tick)
		return
	}

	prices := make(map[string]float64, len(e.instruments))
	for _, in := range e.instruments {
		e.advanceInstrument(in, step.Tick)
		prices[in.Symbol] = in.Price()
	}
	e.broadcast(EventPriceTick, prices)

	if step.Tick%e.opts.LeaderboardEvery == 0 {
		e.broadcast(EventLeaderboardUpdate, e.ledger.Leaderboard(prices))
	}
}

// advanceInstrument moves one instrument and settles its stop-losses. A
// panic here is confined to this instrument for this tick.
func (e *Engine) advanceInstrument(in *game.Instrument, tick int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Instrument %s failed on tick %d: %v", in.Symbol, tick, r)
		}
	}()

	if kind, started := in.MaybeStartPattern(e.rng, tick); started {
		log.Printf("📈 Pattern %s injected on %s at tick %d", kind, in.Symbol, tick)
	}

	price := in.Advance(e.rng)

	if in.IsCandleBoundary(tick) {
		c, falseSignal := in.CloseCandle(e.rng, tick)
		if falseSignal {
			log.Printf("🎭 False RSI signal on %s candle %d", in.Symbol, tick)
		}
		e.broadcast(EventCandleClose, CandleClosePayload{
			Symbol: in.Symbol,
			Candle: c,
			RSI:    c.Indicators.RSI,
			Trend:  c.Indicators.Trend,
		})
	}

	for _, o := range e.book.Trigger(in.Symbol, price) {
		e.settleStopLoss(o, price, tick)
	}
}

// settleStopLoss executes a triggered order. The order has already left the
// book, so a failed execution is reported and never retried.
func (e *Engine) settleStopLoss(o state.PendingOrder, price float64, tick int) {
	side := o.Side()
	if err := e.ledger.Execute(o.Owner, o.Symbol, side, o.Quantity, price); err != nil {
		log.Printf("⚠️  Stop-loss %s for %s on %s failed: %v", o.ID, o.Owner, o.Symbol, err)
		e.sendTo(o.Owner, EventNotification, NotificationPayload{
			Username: o.Owner,
			Message:  fmt.Sprintf("SL Failed: %s @ %s (%s)", o.Symbol, formatPrice(price), failureReason(err)),
		})
		return
	}

	log.Printf("🎯 Stop-loss triggered: %s %s %d %s @ %.2f", o.Owner, side, o.Quantity, o.Symbol, price)
	e.sendTo(o.Owner, EventNotification, NotificationPayload{
		Username: o.Owner,
		Message:  fmt.Sprintf("SL Triggered: %s @ %s", o.Symbol, formatPrice(price)),
	})
	if p, err := e.ledger.Portfolio(o.Owner); err == nil {
		e.sendTo(o.Owner, EventPortfolioUpdate, p)
	}
	e.record(TradeRecord{
		Username: o.Owner,
		Symbol:   o.Symbol,
		Side:     side,
		Quantity: o.Quantity,
		Price:    price,
		Source:   SourceStopLoss,
		Tick:     tick,
	})
}

// finish emits the final standings. It runs once, on the tick that ends the
// game; no prices move on that tick.
func (e *Engine) finish(tick int) {
	prices := e.prices()
	board := e.ledger.Leaderboard(prices)

	over := GameOverPayload{}
	if len(board) > 0 {
		over.Winner = board[0].Name
		over.Return = board[0].Value
	}
	e.broadcast(EventGameOver, over)

	if over.Winner != "" {
		log.Printf("🏆 Game over at tick %d: %s wins with %.2f", tick, over.Winner, over.Return)
	} else {
		log.Printf("🏁 Game over at tick %d with no participants", tick)
	}

	if e.recorder != nil {
		candles := make(map[string][]game.Candle, len(e.instruments))
		for _, in := range e.instruments {
			candles[in.Symbol] = in.History()
		}
		e.recorder.RecordGameResult(GameResult{
			RunID:       e.runID,
			SeedHash:    e.opts.SeedHash,
			Winner:      over.Winner,
			Return:      over.Return,
			FinalTick:   tick,
			Leaderboard: board,
			Candles:     candles,
			EndedAt:     time.Now(),
		})
	}
}

func (e *Engine) record(t TradeRecord) {
	if e.recorder == nil {
		return
	}
	t.RunID = e.runID
	t.ExecutedAt = time.Now()
	e.recorder.RecordTrade(t)
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
