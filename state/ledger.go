package state

import (
	"fmt"
	"sort"
	"strings"

	"marketSimServer/config"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: side %q", ErrInvalidOrder, s)
}

const moneyPlaces = 2

// Participant is one player's ledger entry.
type Participant struct {
	Name     string
	Cash     decimal.Decimal
	Holdings map[string]int
}

// Portfolio is a copy of a participant's position suitable for events.
type Portfolio struct {
	Cash     float64        `json:"cash"`
	Holdings map[string]int `json:"holdings"`
}

// LeaderboardEntry is one ranked valuation.
type LeaderboardEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Ledger holds cash and holdings for every participant. Execute is the only
// method that changes either.
type Ledger struct {
	startingCash decimal.Decimal
	symbols      []string
	known        map[string]bool
	participants map[string]*Participant
	joinOrder    []string
}

func NewLedger(startingCash decimal.Decimal, symbols []string) *Ledger {
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[s] = true
	}
	return &Ledger{
		startingCash: startingCash.Round(moneyPlaces),
		symbols:      append([]string(nil), symbols...),
		known:        known,
		participants: make(map[string]*Participant),
	}
}

// Join creates the participant on first use. It reports whether a new
// participant was created.
func (l *Ledger) Join(name string) (Portfolio, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Portfolio{}, false, ErrInvalidName
	}
	if p, ok := l.participants[name]; ok {
		return p.portfolio(), false, nil
	}

	holdings := make(map[string]int, len(l.symbols))
	for _, s := range l.symbols {
		holdings[s] = 0
	}
	p := &Participant{Name: name, Cash: l.startingCash, Holdings: holdings}
	l.participants[name] = p
	l.joinOrder = append(l.joinOrder, name)
	return p.portfolio(), true, nil
}

func (p *Participant) portfolio() Portfolio {
	h := make(map[string]int, len(p.Holdings))
	for k, v := range p.Holdings {
		h[k] = v
	}
	return Portfolio{Cash: p.Cash.InexactFloat64(), Holdings: h}
}

// Has reports whether name has joined.
func (l *Ledger) Has(name string) bool {
	_, ok := l.participants[name]
	return ok
}

// Len returns the number of participants.
func (l *Ledger) Len() int { return len(l.participants) }

// Portfolio returns a copy of name's position.
func (l *Ledger) Portfolio(name string) (Portfolio, error) {
	p, ok := l.participants[name]
	if !ok {
		return Portfolio{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, name)
	}
	return p.portfolio(), nil
}

// Cash returns name's exact cash balance.
func (l *Ledger) Cash(name string) (decimal.Decimal, error) {
	p, ok := l.participants[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownParticipant, name)
	}
	return p.Cash, nil
}

func priceToDecimal(price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Round(moneyPlaces)
}

// Execute applies a trade at price. A buy needs cash ≥ price×qty and leaves
// state untouched otherwise. A sell needs no holdings, so positions may go
// negative, but never beyond ±config.MaxPosition.
func (l *Ledger) Execute(name, symbol string, side Side, qty int, price float64) error {
	p, ok := l.participants[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, name)
	}
	if !l.known[symbol] {
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	if qty <= 0 || qty > config.MaxOrderQuantity {
		return fmt.Errorf("%w: quantity %d", ErrInvalidOrder, qty)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price %v", ErrInvalidOrder, price)
	}

	cost := priceToDecimal(price).Mul(decimal.NewFromInt(int64(qty)))

	held := p.Holdings[symbol]
	switch side {
	case SideBuy:
		if held > config.MaxPosition-qty {
			return fmt.Errorf("%w: position limit %d on %s", ErrInvalidOrder, config.MaxPosition, symbol)
		}
		if p.Cash.LessThan(cost) {
			return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(moneyPlaces), p.Cash.StringFixed(moneyPlaces))
		}
		p.Cash = p.Cash.Sub(cost)
		p.Holdings[symbol] += qty
	case SideSell:
		if held < qty-config.MaxPosition {
			return fmt.Errorf("%w: position limit %d on %s", ErrInvalidOrder, config.MaxPosition, symbol)
		}
		p.Cash = p.Cash.Add(cost)
		p.Holdings[symbol] -= qty
	default:
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, side)
	}
	return nil
}

// Valuation returns cash plus holdings marked at prices, rounded to cents.
func (l *Ledger) Valuation(name string, prices map[string]float64) (decimal.Decimal, error) {
	p, ok := l.participants[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownParticipant, name)
	}
	return p.valuation(prices), nil
}

func (p *Participant) valuation(prices map[string]float64) decimal.Decimal {
	total := p.Cash
	for symbol, qty := range p.Holdings {
		if qty == 0 {
			continue
		}
		total = total.Add(priceToDecimal(prices[symbol]).Mul(decimal.NewFromInt(int64(qty))))
	}
	return total.Round(moneyPlaces)
}

// Leaderboard ranks every participant by valuation, highest first. Equal
// valuations keep join order.
func (l *Ledger) Leaderboard(prices map[string]float64) []LeaderboardEntry {
	type ranked struct {
		name  string
		value decimal.Decimal
	}
	rows := make([]ranked, 0, len(l.joinOrder))
	for _, name := range l.joinOrder {
		rows = append(rows, ranked{name: name, value: l.participants[name].valuation(prices)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].value.GreaterThan(rows[j].value)
	})

	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = LeaderboardEntry{Name: r.name, Value: r.value.InexactFloat64()}
	}
	return out
}
