package engine

import (
	"time"

	"marketSimServer/game"
	"marketSimServer/state"
)

// EventType names an outbound event.
type EventType string

const (
	EventPriceTick         EventType = "price_tick"
	EventCandleClose       EventType = "candle_close"
	EventDayChange         EventType = "day_change"
	EventGameStatus        EventType = "game_status"
	EventLeaderboardUpdate EventType = "leaderboard_update"
	EventGameOver          EventType = "game_over"
	EventNotification      EventType = "notification"
	EventOrderResult       EventType = "order_result"
	EventPortfolioUpdate   EventType = "portfolio_update"
	EventInitData          EventType = "init_data"
)

// Event is the JSON envelope every publisher receives.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Publisher fans events out to clients. Implementations must not block the
// caller: queue or drop.
type Publisher interface {
	Broadcast(ev Event)
	SendTo(username string, ev Event)
}

// Recorder archives executed trades and final results. Implementations must
// not block the caller.
type Recorder interface {
	RecordTrade(t TradeRecord)
	RecordGameResult(r GameResult)
}

type CandleClosePayload struct {
	Symbol string      `json:"symbol"`
	Candle game.Candle `json:"candle"`
	RSI    float64     `json:"rsi"`
	Trend  float64     `json:"trend"`
}

type DayChangePayload struct {
	Day int `json:"day"`
}

type GameStatusPayload struct {
	Status state.Status `json:"status"`
	Day    int          `json:"day"`
}

type GameOverPayload struct {
	Winner string  `json:"winner"`
	Return float64 `json:"return"`
}

type NotificationPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type OrderResultPayload struct {
	Message string `json:"message"`
}

type InitDataPayload struct {
	Portfolio state.Portfolio `json:"portfolio"`
	Stocks    []StockView     `json:"stocks"`
}

// StockView is the public state of one instrument.
type StockView struct {
	Symbol  string        `json:"symbol"`
	Name    string        `json:"name"`
	Price   float64       `json:"price"`
	Candle  game.OHLC     `json:"currentCandle"`
	History []game.Candle `json:"history"`
	Pattern string        `json:"pattern,omitempty"`
}

// TradeRecord is one executed trade.
type TradeRecord struct {
	RunID      string     `json:"runId"`
	Username   string     `json:"username"`
	Symbol     string     `json:"symbol"`
	Side       state.Side `json:"side"`
	Quantity   int        `json:"quantity"`
	Price      float64    `json:"price"`
	Source     string     `json:"source"`
	Tick       int        `json:"tick"`
	ExecutedAt time.Time  `json:"executedAt"`
}

const (
	SourceMarket   = "market"
	SourceStopLoss = "stop_loss"
)

// GameResult is the final standing of a finished run.
type GameResult struct {
	RunID       string                   `json:"runId"`
	SeedHash    string                   `json:"seedHash"`
	Winner      string                   `json:"winner"`
	Return      float64                  `json:"return"`
	FinalTick   int                      `json:"finalTick"`
	Leaderboard []state.LeaderboardEntry `json:"leaderboard"`
	Candles     map[string][]game.Candle `json:"candles"`
	EndedAt     time.Time                `json:"endedAt"`
}
