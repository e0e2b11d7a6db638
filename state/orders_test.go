package state

import (
	"errors"
	"math"
	"testing"

	"marketSimServer/config"
)

func TestOrderBookTriggerOnce(t *testing.T) {
	b := NewOrderBook()

	sell, err := b.Add(PendingOrder{Owner: "alice", Symbol: "TCS", Kind: StopLossSell, Quantity: 5, Trigger: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sell.ID == "" {
		t.Error("expected an order ID to be assigned")
	}
	b.Add(PendingOrder{Owner: "bob", Symbol: "TCS", Kind: StopLossBuy, Quantity: 2, Trigger: 110})
	b.Add(PendingOrder{Owner: "alice", Symbol: "INFY", Kind: StopLossSell, Quantity: 1, Trigger: 100})

	if fired := b.Trigger("TCS", 105); len(fired) != 0 {
		t.Fatalf("nothing should fire at 105, got %+v", fired)
	}

	fired := b.Trigger("TCS", 99.50)
	if len(fired) != 1 || fired[0].ID != sell.ID {
		t.Fatalf("expected alice's TCS stop to fire, got %+v", fired)
	}
	if fired[0].Side() != SideSell {
		t.Errorf("stop_loss_sell must execute as a sell")
	}
	if again := b.Trigger("TCS", 50); len(again) != 0 {
		t.Fatalf("a fired order must never fire again, got %+v", again)
	}
	if b.Len() != 2 {
		t.Errorf("expected 2 pending orders, got %d", b.Len())
	}

	fired = b.Trigger("TCS", 110)
	if len(fired) != 1 || fired[0].Owner != "bob" || fired[0].Side() != SideBuy {
		t.Fatalf("expected bob's buy stop to fire at its trigger, got %+v", fired)
	}
	if len(b.ForOwner("alice")) != 1 || len(b.ForOwner("bob")) != 0 {
		t.Errorf("unexpected remaining orders %+v", b.Pending())
	}
}

func TestOrderBookTriggerKeepsArrivalOrder(t *testing.T) {
	b := NewOrderBook()
	for _, owner := range []string{"a", "b", "c"} {
		b.Add(PendingOrder{Owner: owner, Symbol: "ITC", Kind: StopLossSell, Quantity: 1, Trigger: 400})
	}
	fired := b.Trigger("ITC", 399)
	if len(fired) != 3 || fired[0].Owner != "a" || fired[2].Owner != "c" {
		t.Errorf("expected arrival order, got %+v", fired)
	}
}

func TestOrderValidation(t *testing.T) {
	b := NewOrderBook()
	bad := []PendingOrder{
		{Owner: "", Symbol: "TCS", Kind: StopLossSell, Quantity: 1, Trigger: 10},
		{Owner: "x", Symbol: "", Kind: StopLossSell, Quantity: 1, Trigger: 10},
		{Owner: "x", Symbol: "TCS", Kind: "limit", Quantity: 1, Trigger: 10},
		{Owner: "x", Symbol: "TCS", Kind: StopLossSell, Quantity: 0, Trigger: 10},
		{Owner: "x", Symbol: "TCS", Kind: StopLossSell, Quantity: config.MaxOrderQuantity + 1, Trigger: 10},
		{Owner: "x", Symbol: "TCS", Kind: StopLossSell, Quantity: 1, Trigger: 0},
		{Owner: "x", Symbol: "TCS", Kind: StopLossSell, Quantity: 1, Trigger: math.Inf(1)},
	}
	for i, o := range bad {
		if _, err := b.Add(o); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("case %d: expected ErrInvalidOrder, got %v", i, err)
		}
	}
	if b.Len() != 0 {
		t.Errorf("invalid orders must not enter the book, got %d", b.Len())
	}
}

func TestStopLossKind(t *testing.T) {
	if StopLossKind(SideBuy) != StopLossBuy || StopLossKind(SideSell) != StopLossSell {
		t.Error("unexpected stop-loss kind mapping")
	}
}
