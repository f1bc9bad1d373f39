package profiler

import "math"

const (
	// framesToAverage is the ring buffer length used for the rolling average.
	framesToAverage = 60
	// historyEntries is the number of per-frame averages kept for the
	// steady-state check.
	historyEntries = 100
	// validVariance is the upper bound on FPS history variance below which the
	// average is considered stable enough to report.
	validVariance = 5.0
)

// FPSTimer computes a rolling average frame rate over a fixed window and keeps
// a short history of those averages so callers can detect when the frame rate
// has settled.
type FPSTimer struct {
	totalTime   float64
	timeTable   [framesToAverage]float64
	tableCursor int
	historyFPS  [historyEntries]float64
	averageFPS  float64
}

// NewFPSTimer creates an FPSTimer seeded as if every prior frame took one
// second, matching the behavior of a timer that has not yet warmed up.
//
// Returns:
//   - *FPSTimer: the newly created timer
func NewFPSTimer() *FPSTimer {
	t := &FPSTimer{totalTime: float64(framesToAverage)}
	for i := range t.timeTable {
		t.timeTable[i] = 1.0
	}
	for i := range t.historyFPS {
		t.historyFPS[i] = 1.0
	}
	return t
}

// Update records one frame. elapsed is the wall-clock duration of the frame in
// seconds. The rolling average replaces the oldest sample in the window and the
// history shifts by one.
//
// Parameters:
//   - elapsed: frame duration in seconds
func (t *FPSTimer) Update(elapsed float64) {
	t.totalTime += elapsed - t.timeTable[t.tableCursor]
	t.timeTable[t.tableCursor] = elapsed

	t.tableCursor++
	if t.tableCursor == framesToAverage {
		t.tableCursor = 0
	}

	t.averageFPS = math.Floor(1.0/(t.totalTime/float64(framesToAverage)) + 0.5)

	copy(t.historyFPS[:historyEntries-1], t.historyFPS[1:])
	t.historyFPS[historyEntries-1] = t.averageFPS
}

// AverageFPS returns the current rolling average frame rate.
func (t *FPSTimer) AverageFPS() float64 {
	return t.averageFPS
}

// StableFPS returns the ceiling of the mean history FPS when the history
// variance is below the validity threshold, and 0 when the frame rate has not
// yet settled.
//
// Returns:
//   - int: stable FPS, or 0 when the history is still too noisy
func (t *FPSTimer) StableFPS() int {
	avg := 0.0
	for _, v := range t.historyFPS {
		avg += v
	}
	avg /= historyEntries

	variance := 0.0
	for _, v := range t.historyFPS {
		variance += (v - avg) * (v - avg)
	}
	variance /= historyEntries

	if variance < validVariance {
		return int(math.Ceil(avg))
	}
	return 0
}
