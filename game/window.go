package game

// PriceWindow is a fixed-capacity ring buffer of raw prices. Pushing past
// capacity evicts the oldest sample.
type PriceWindow struct {
	buf   []float64
	start int
	size  int
}

// NewPriceWindow returns an empty window holding at most capacity samples.
func NewPriceWindow(capacity int) *PriceWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &PriceWindow{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest one when full.
func (w *PriceWindow) Push(v float64) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of samples held.
func (w *PriceWindow) Len() int { return w.size }

// Cap returns the window capacity.
func (w *PriceWindow) Cap() int { return len(w.buf) }

// Values returns the samples oldest first. The slice is a copy.
func (w *PriceWindow) Values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the most recent sample.
func (w *PriceWindow) Last() (float64, bool) {
	if w.size == 0 {
		return 0, false
	}
	return w.buf[(w.start+w.size-1)%len(w.buf)], true
}
