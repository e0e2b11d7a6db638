package state

import (
	"fmt"
	"math"
	"strings"

	"marketSimServer/config"

	"github.com/google/uuid"
)

// OrderKind is the conditional order type held in the book.
type OrderKind string

const (
	StopLossBuy  OrderKind = "stop_loss_buy"
	StopLossSell OrderKind = "stop_loss_sell"
)

// StopLossKind maps a trade side to its stop-loss kind.
func StopLossKind(side Side) OrderKind {
	if side == SideBuy {
		return StopLossBuy
	}
	return StopLossSell
}

// PendingOrder is a stop-loss waiting for its trigger.
type PendingOrder struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Symbol      string    `json:"symbol"`
	Kind        OrderKind `json:"kind"`
	Quantity    int       `json:"quantity"`
	Trigger     float64   `json:"trigger"`
	CreatedTick int       `json:"createdTick"`
}

// Side returns the trade side executed when the order fires.
func (o PendingOrder) Side() Side {
	if o.Kind == StopLossBuy {
		return SideBuy
	}
	return SideSell
}

// Triggered reports whether price crosses the order's trigger.
func (o PendingOrder) Triggered(price float64) bool {
	switch o.Kind {
	case StopLossSell:
		return price <= o.Trigger
	case StopLossBuy:
		return price >= o.Trigger
	}
	return false
}

// Validate checks the order before it may enter the book.
func (o PendingOrder) Validate() error {
	if strings.TrimSpace(o.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidOrder)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if o.Kind != StopLossBuy && o.Kind != StopLossSell {
		return fmt.Errorf("%w: kind %q", ErrInvalidOrder, o.Kind)
	}
	if o.Quantity <= 0 || o.Quantity > config.MaxOrderQuantity {
		return fmt.Errorf("%w: quantity %d", ErrInvalidOrder, o.Quantity)
	}
	if math.IsNaN(o.Trigger) || math.IsInf(o.Trigger, 0) || o.Trigger <= 0 {
		return fmt.Errorf("%w: trigger %v", ErrInvalidOrder, o.Trigger)
	}
	return nil
}

// OrderBook holds pending stop-loss orders in arrival order.
type OrderBook struct {
	orders []PendingOrder
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Add validates o, assigns it an ID and stores it.
func (b *OrderBook) Add(o PendingOrder) (PendingOrder, error) {
	if err := o.Validate(); err != nil {
		return PendingOrder{}, err
	}
	o.ID = uuid.NewString()
	b.orders = append(b.orders, o)
	return o, nil
}

// Trigger removes and returns every order on symbol that fires at price.
// Each order is returned at most once over the life of the book.
func (b *OrderBook) Trigger(symbol string, price float64) []PendingOrder {
	var fired []PendingOrder
	kept := b.orders[:0]
	for _, o := range b.orders {
		if o.Symbol == symbol && o.Triggered(price) {
			fired = append(fired, o)
			continue
		}
		kept = append(kept, o)
	}
	// Clear the tail so removed orders are not retained by the backing array.
	for i := len(kept); i < len(b.orders); i++ {
		b.orders[i] = PendingOrder{}
	}
	b.orders = kept
	return fired
}

// Pending returns a copy of every pending order.
func (b *OrderBook) Pending() []PendingOrder {
	out := make([]PendingOrder, len(b.orders))
	copy(out, b.orders)
	return out
}

// ForOwner returns the pending orders placed by owner.
func (b *OrderBook) ForOwner(owner string) []PendingOrder {
	var out []PendingOrder
	for _, o := range b.orders {
		if o.Owner == owner {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of pending orders.
func (b *OrderBook) Len() int { return len(b.orders) }
