package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"marketSimServer/config"
	"marketSimServer/game"
	"marketSimServer/state"
)

// OrderType is the execution style of a client order.
type OrderType string

const (
	OrderMarket   OrderType = "market"
	OrderStopLoss OrderType = "stop_loss"
)

// Order result messages sent to the submitter.
const (
	MsgFilled       = "Filled"
	MsgNoFunds      = "No Funds"
	MsgMarketClosed = "Market Closed"
	MsgStopLossSet  = "SL Set"
	MsgInvalidOrder = "Invalid Order"
)

// OrderRequest is a place_order command.
type OrderRequest struct {
	Username string     `json:"username"`
	Symbol   string     `json:"symbol"`
	Side     state.Side `json:"side"`
	Quantity int        `json:"qty"`
	Type     OrderType  `json:"type"`
	Trigger  float64    `json:"trigger,omitempty"`
}

// OrderReply is what the submitter is told about its order.
type OrderReply struct {
	Message   string              `json:"message"`
	Portfolio *state.Portfolio    `json:"portfolio,omitempty"`
	Order     *state.PendingOrder `json:"order,omitempty"`
}

// JoinReply is what a participant receives on join.
type JoinReply struct {
	Created   bool              `json:"created"`
	Status    GameStatusPayload `json:"status"`
	Portfolio state.Portfolio   `json:"portfolio"`
	Stocks    []StockView       `json:"stocks"`
}

// Snapshot is a read-only copy of the whole game.
type Snapshot struct {
	RunID         string                   `json:"runId"`
	SeedHash      string                   `json:"seedHash"`
	Clock         state.ClockState         `json:"clock"`
	Stocks        []StockView              `json:"stocks"`
	Leaderboard   []state.LeaderboardEntry `json:"leaderboard"`
	Participants  int                      `json:"participants"`
	PendingOrders int                      `json:"pendingOrders"`
}

// Join registers username (idempotently) and sends it the current status
// and market.
func (e *Engine) Join(ctx context.Context, username string) (JoinReply, error) {
	var reply JoinReply
	var err error
	if derr := e.do(ctx, func() { reply, err = e.join(username) }); derr != nil {
		return JoinReply{}, derr
	}
	return reply, err
}

func (e *Engine) join(username string) (JoinReply, error) {
	username = strings.TrimSpace(username)
	portfolio, created, err := e.ledger.Join(username)
	if err != nil {
		return JoinReply{}, err
	}
	if created {
		log.Printf("👤 %s joined (%d participants)", username, e.ledger.Len())
	}

	reply := JoinReply{
		Created:   created,
		Status:    e.statusPayload(),
		Portfolio: portfolio,
		Stocks:    e.stocks(),
	}
	e.sendTo(username, EventGameStatus, reply.Status)
	e.sendTo(username, EventInitData, InitDataPayload{Portfolio: portfolio, Stocks: reply.Stocks})
	return reply, nil
}

// PlaceOrder executes a market order or rests a stop-loss. The submitter is
// sent an order_result (and a portfolio_update for market orders).
func (e *Engine) PlaceOrder(ctx context.Context, req OrderRequest) (OrderReply, error) {
	var reply OrderReply
	var err error
	if derr := e.do(ctx, func() { reply, err = e.placeOrder(req) }); derr != nil {
		return OrderReply{}, derr
	}
	return reply, err
}

func (e *Engine) placeOrder(req OrderRequest) (OrderReply, error) {
	if e.clock.Status() != state.StatusActive {
		e.sendTo(req.Username, EventOrderResult, OrderResultPayload{Message: MsgMarketClosed})
		return OrderReply{Message: MsgMarketClosed}, state.ErrMarketClosed
	}
	if !e.ledger.Has(req.Username) {
		log.Printf("⚠️  Order from unknown participant %q ignored", req.Username)
		return OrderReply{}, fmt.Errorf("%w: %s", state.ErrUnknownParticipant, req.Username)
	}

	reply, err := e.routeOrder(req)
	if reply.Message != "" {
		e.sendTo(req.Username, EventOrderResult, OrderResultPayload{Message: reply.Message})
	}
	if reply.Portfolio != nil {
		e.sendTo(req.Username, EventPortfolioUpdate, *reply.Portfolio)
	}
	return reply, err
}

func (e *Engine) routeOrder(req OrderRequest) (OrderReply, error) {
	in, ok := e.bySymbol[req.Symbol]
	if !ok {
		return invalid(fmt.Errorf("%w: %s", state.ErrUnknownInstrument, req.Symbol))
	}
	if req.Quantity <= 0 || req.Quantity > config.MaxOrderQuantity {
		return invalid(fmt.Errorf("%w: quantity %d", state.ErrInvalidOrder, req.Quantity))
	}
	if req.Side != state.SideBuy && req.Side != state.SideSell {
		return invalid(fmt.Errorf("%w: side %q", state.ErrInvalidOrder, req.Side))
	}

	switch req.Type {
	case OrderMarket, "":
		price := in.Price()
		err := e.ledger.Execute(req.Username, req.Symbol, req.Side, req.Quantity, price)
		portfolio, _ := e.ledger.Portfolio(req.Username)
		if err != nil {
			if errors.Is(err, state.ErrInsufficientFunds) {
				return OrderReply{Message: MsgNoFunds, Portfolio: &portfolio}, err
			}
			return invalid(err)
		}
		e.record(TradeRecord{
			Username: req.Username,
			Symbol:   req.Symbol,
			Side:     req.Side,
			Quantity: req.Quantity,
			Price:    price,
			Source:   SourceMarket,
			Tick:     e.clock.Tick(),
		})
		return OrderReply{Message: MsgFilled, Portfolio: &portfolio}, nil

	case OrderStopLoss:
		o, err := e.book.Add(state.PendingOrder{
			Owner:       req.Username,
			Symbol:      req.Symbol,
			Kind:        state.StopLossKind(req.Side),
			Quantity:    req.Quantity,
			Trigger:     req.Trigger,
			CreatedTick: e.clock.Tick(),
		})
		if err != nil {
			return invalid(err)
		}
		log.Printf("📝 %s set %s on %s x%d @ %.2f", o.Owner, o.Kind, o.Symbol, o.Quantity, o.Trigger)
		return OrderReply{Message: MsgStopLossSet, Order: &o}, nil
	}
	return invalid(fmt.Errorf("%w: type %q", state.ErrInvalidOrder, req.Type))
}

func invalid(err error) (OrderReply, error) {
	return OrderReply{Message: MsgInvalidOrder + ": " + failureReason(err)}, err
}

// failureReason strips the wrapped detail down to a short client message.
func failureReason(err error) string {
	switch {
	case errors.Is(err, state.ErrInsufficientFunds):
		return MsgNoFunds
	case err == nil:
		return ""
	}
	return err.Error()
}

// Admin applies an operator action: start, pause, resume, clear_patterns or
// a pattern name. symbol limits pattern actions to one instrument; empty
// means all of them.
func (e *Engine) Admin(ctx context.Context, action, symbol string) (state.ClockState, error) {
	var cs state.ClockState
	var err error
	if derr := e.do(ctx, func() { cs, err = e.admin(action, symbol) }); derr != nil {
		return state.ClockState{}, derr
	}
	return cs, err
}

func (e *Engine) admin(action, symbol string) (state.ClockState, error) {
	action = strings.ToLower(strings.TrimSpace(action))

	var changed bool
	switch action {
	case "start":
		changed = e.clock.Start()
	case "pause":
		changed = e.clock.Pause()
	case "resume":
		changed = e.clock.Resume()
	default:
		return e.clock.State(), e.adminPattern(action, symbol)
	}

	if changed {
		log.Printf("🎮 Admin %s: game is now %s", action, e.clock.Status())
		e.broadcast(EventGameStatus, e.statusPayload())
	}
	return e.clock.State(), nil
}

func (e *Engine) adminPattern(action, symbol string) error {
	var kind game.PatternKind
	if action != "clear_patterns" {
		k, err := game.ParsePattern(action)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
		kind = k
	}
	if e.clock.Status() == state.StatusEnded {
		return ErrGameEnded
	}

	targets := e.instruments
	if symbol != "" {
		in, ok := e.bySymbol[symbol]
		if !ok {
			return fmt.Errorf("%w: %s", state.ErrUnknownInstrument, symbol)
		}
		targets = []*game.Instrument{in}
	}

	for _, in := range targets {
		if kind == "" {
			in.ClearPattern()
			continue
		}
		if err := in.SetPattern(e.rng, kind); err != nil {
			return fmt.Errorf("failed to inject %s on %s: %w", kind, in.Symbol, err)
		}
	}
	if kind == "" {
		log.Printf("🧹 Admin cleared patterns on %d instrument(s)", len(targets))
	} else {
		log.Printf("📈 Admin injected %s on %d instrument(s)", kind, len(targets))
	}
	return nil
}

// Snapshot returns a consistent copy of the game state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := e.do(ctx, func() { snap = e.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		RunID:         e.runID,
		SeedHash:      e.opts.SeedHash,
		Clock:         e.clock.State(),
		Stocks:        e.stocks(),
		Leaderboard:   e.ledger.Leaderboard(e.prices()),
		Participants:  e.ledger.Len(),
		PendingOrders: e.book.Len(),
	}
}
