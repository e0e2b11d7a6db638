package game

// Indicators is the snapshot attached to a closed candle.
type Indicators struct {
	RSI   float64 `json:"rsi"`
	Trend float64 `json:"trend"`
	MACD  float64 `json:"macd"`
}

// IndicatorConfig tunes ComputeIndicators.
type IndicatorConfig struct {
	RSIPeriod         int
	TrendWindow       int
	MACDFast          int
	MACDSlow          int
	FalseSignalChance float64
}

const neutralRSI = 50.0

// RSI computes the relative strength index over the last period deltas of
// prices. Fewer than period+1 samples yields the neutral 50; no losses
// yields 100.
func RSI(prices []float64, period int) float64 {
	if period < 1 || len(prices) < period+1 {
		return neutralRSI
	}
	var gains, losses float64
	n := len(prices)
	for i := n - period; i < n; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// SMA averages the last n prices, or all of them when fewer are available.
func SMA(prices []float64, n int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if n <= 0 || n > len(prices) {
		n = len(prices)
	}
	sum := 0.0
	for _, p := range prices[len(prices)-n:] {
		sum += p
	}
	return sum / float64(n)
}

// EMA runs an exponential moving average of period n across prices, seeded
// with the first sample.
func EMA(prices []float64, n int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if n < 1 {
		n = 1
	}
	k := 2 / (float64(n) + 1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// MACD returns the fast EMA minus the slow EMA.
func MACD(prices []float64, fast, slow int) float64 {
	return EMA(prices, fast) - EMA(prices, slow)
}

// ComputeIndicators derives the candle-close snapshot from the raw window.
// With probability cfg.FalseSignalChance the reported RSI is inverted; the
// second return value reports whether that happened.
func ComputeIndicators(rng Rand, prices []float64, cfg IndicatorConfig) (Indicators, bool) {
	rsi := RSI(prices, cfg.RSIPeriod)
	falseSignal := Chance(rng, cfg.FalseSignalChance)
	if falseSignal {
		rsi = 100 - rsi
	}
	return Indicators{
		RSI:   RoundToDecimal(rsi, 2),
		Trend: RoundToDecimal(SMA(prices, cfg.TrendWindow), 2),
		MACD:  RoundToDecimal(MACD(prices, cfg.MACDFast, cfg.MACDSlow), 2),
	}, falseSignal
}
