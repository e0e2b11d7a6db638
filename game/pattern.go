package game

import (
	"errors"
	"fmt"
)

// PatternKind names a scripted candlestick shape.
type PatternKind string

const (
	BullishEngulfing PatternKind = "bullish_engulfing"
	BearishEngulfing PatternKind = "bearish_engulfing"
	Hammer           PatternKind = "hammer"
	MorningStar      PatternKind = "morning_star"
	MarubozuBull     PatternKind = "marubozu_bull"
)

// Patterns lists every supported kind in a fixed order. Random selection
// indexes into this slice.
var Patterns = []PatternKind{
	BullishEngulfing,
	BearishEngulfing,
	Hammer,
	MorningStar,
	MarubozuBull,
}

var ErrUnknownPattern = errors.New("unknown pattern")

const (
	morningStarNoise = 0.5
	hammerDropShare  = 0.6 // share of the window spent falling
)

// ParsePattern maps a name to a supported kind.
func ParsePattern(name string) (PatternKind, error) {
	for _, p := range Patterns {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPattern, name)
}

// move interpolates from start to end in steps, excluding start and ending
// exactly on end.
func move(start, end float64, steps int) []float64 {
	out := make([]float64, steps)
	for i := 1; i <= steps; i++ {
		out[i-1] = start + (end-start)*float64(i)/float64(steps)
	}
	return out
}

// GeneratePattern returns the target prices that stage kind starting from
// price. Each segment spans steps ticks, so a pattern always covers a whole
// number of candles. Only morning_star draws from rng.
func GeneratePattern(rng Rand, price float64, kind PatternKind, steps int) ([]float64, error) {
	if steps < 2 {
		return nil, fmt.Errorf("pattern needs at least 2 steps per segment, got %d", steps)
	}
	p := price
	var targets []float64

	switch kind {
	case BullishEngulfing:
		targets = append(targets, move(p, p*0.998, steps)...)
		targets = append(targets, move(p*0.997, p*1.005, steps)...)

	case BearishEngulfing:
		targets = append(targets, move(p, p*1.002, steps)...)
		targets = append(targets, move(p*1.003, p*0.995, steps)...)

	case Hammer:
		down := int(float64(steps) * hammerDropShare)
		if down < 1 {
			down = 1
		}
		bottom := p * 0.995
		targets = append(targets, move(p, bottom, down)...)
		targets = append(targets, move(bottom, p*1.001, steps-down)...)

	case MorningStar:
		targets = append(targets, move(p, p*0.990, steps)...)
		mid := targets[len(targets)-1]
		for i := 0; i < steps; i++ {
			targets = append(targets, mid+Uniform(rng, -morningStarNoise, morningStarNoise))
		}
		mid = targets[len(targets)-1]
		targets = append(targets, move(mid, mid*1.015, steps)...)

	case MarubozuBull:
		targets = append(targets, move(p, p*1.008, steps)...)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, kind)
	}

	return targets, nil
}
