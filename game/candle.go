package game

import "math"

// Candle is a closed OHLC summary of one aggregation window. Time is the
// tick index on which it closed.
type Candle struct {
	Time       int        `json:"time"`
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Indicators Indicators `json:"indicators"`
}

// OHLC is the in-progress candle of an instrument.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func flatOHLC(price float64) OHLC {
	return OHLC{Open: price, High: price, Low: price, Close: price}
}

// Update folds a new price into the candle.
func (c *OHLC) Update(price float64) {
	c.Close = price
	c.High = math.Max(c.High, price)
	c.Low = math.Min(c.Low, price)
}
