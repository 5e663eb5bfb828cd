package mon

import (
	"sync/atomic"
)

const (
	bufferShift = 8 // 256 elements
	bufferElems = 1 << bufferShift
	bufferMask  = bufferElems - 1
)

// Histogram is a ring of the most recent durations observed for some
// operation, in nanoseconds. It is safe for concurrent use.
type Histogram struct {
	total int64
	durs  [bufferElems]int64
}

// Record stores one duration in the ring buffer.
func (h *Histogram) Record(dur int64) {
	loc := &h.durs[(atomic.AddInt64(&h.total, 1)-1)&bufferMask]
	atomic.StoreInt64(loc, dur)
}

// Total returns how many durations have ever been recorded.
func (h *Histogram) Total() int64 { return atomic.LoadInt64(&h.total) }

// dursLen returns the number of valid entries in the durs buffer.
func (h *Histogram) dursLen() int {
	n := h.Total()
	if n > bufferElems {
		return bufferElems
	}
	return int(n)
}

// Durations returns a copy of the recently observed durations.
func (h *Histogram) Durations() []int64 {
	out := make([]int64, h.dursLen())
	for i := range out {
		out[i] = atomic.LoadInt64(&h.durs[i&bufferMask])
	}
	return out
}

// Average returns the average of the recent durations in nanoseconds.
func (h *Histogram) Average() float64 {
	total := int64(0)
	n := h.dursLen()
	for i := 0; i < n; i++ {
		total += atomic.LoadInt64(&h.durs[i])
	}
	return float64(total) / float64(n)
}
