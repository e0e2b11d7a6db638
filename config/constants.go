package config

import (
	"time"
)

/* =========================
   GAME TIMING
========================= */

const (
	TickInterval     = 1 * time.Second // 1 tick per second
	TicksPerDay      = 300             // 5 minutes of real time per trading day
	FinalDay         = 12              // game ends when the day counter passes this
	LeaderboardEvery = 2               // push leaderboard every N active ticks
)

/* =========================
   MARKET MECHANICS
========================= */

const (
	// Candles
	CandleWindow     = 10  // ticks per candle
	MaxCandleHistory = 512 // closed candles kept per instrument (a full game is 360)

	// Price process
	PriceFloor     = 1.0
	PriceDecimals  = 2
	WalkDelta      = 1.5 // random walk: uniform ±1.5 per tick
	PatternJitter  = 0.2 // pattern mode: uniform ±0.2 around the target
	PatternChance  = 0.20
	RawWindowSize  = 60 // raw prices kept for indicators
	RawWindowSeeds = 50 // raw window is pre-filled with the starting price

	// Indicators
	RSIPeriod         = 14
	TrendWindow       = 20
	MACDFast          = 12
	MACDSlow          = 26
	FalseSignalChance = 0.10
)

/* =========================
   LEDGER
========================= */

const (
	StartingCash = 1000000

	// Per-order quantity cap and the largest long or short position one
	// participant may hold in a single instrument.
	MaxOrderQuantity = 1000000
	MaxPosition      = 1000000000
)

/* =========================
   INSTRUMENTS
========================= */

// InstrumentSpec describes one tradable stock at game start.
type InstrumentSpec struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// Instruments is the fixed catalogue traded in every game.
var Instruments = []InstrumentSpec{
	{Symbol: "RELIANCE", Name: "Reliance Ind.", Price: 2450.00},
	{Symbol: "TCS", Name: "Tata Consultancy", Price: 3680.00},
	{Symbol: "INFY", Name: "Infosys Ltd", Price: 1520.00},
	{Symbol: "HDFCBANK", Name: "HDFC Bank", Price: 1680.00},
	{Symbol: "ICICIBANK", Name: "ICICI Bank", Price: 980.00},
	{Symbol: "BHARTIARTL", Name: "Bharti Airtel", Price: 1240.00},
	{Symbol: "ITC", Name: "ITC Limited", Price: 445.00},
	{Symbol: "WIPRO", Name: "Wipro Ltd", Price: 485.00},
	{Symbol: "TATAMOTORS", Name: "Tata Motors", Price: 765.00},
	{Symbol: "ADANIENT", Name: "Adani Ent", Price: 2890.00},
}

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisEventsChannel  = "market:events"      // broadcast events (PUBLISH)
	RedisUserChannel    = "market:user:%s"     // market:user:{username}
	RedisLeaderboardKey = "market:leaderboard" // latest valuations (ZSET)
	RedisLeaderboardTTL = 2 * time.Hour
	RedisPublishBuffer  = 1024
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	MaxConns        = 10
	MinConns        = 2
	ConnMaxLifetime = 5 * time.Minute
	ArchiveBuffer   = 1024
	ArchiveTimeout  = 5 * time.Second
)

/* =========================
   API / WEBSOCKET CONFIGURATION
========================= */

const (
	ServerPort = "8080"
	ServerHost = "0.0.0.0"

	WSReadDeadline    = 60 * time.Second
	WSWriteDeadline   = 10 * time.Second
	WSPingInterval    = 30 * time.Second
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBuffer      = 256
	MaxMessageSize    = 64 * 1024

	CommandTimeout = 5 * time.Second
	CommandBuffer  = 256
)
