package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFPSTimerAverageConverges(t *testing.T) {
	timer := NewFPSTimer()

	// Feed enough 16.667ms frames to flush the warm-up samples out of the
	// averaging window.
	for i := 0; i < framesToAverage*2; i++ {
		timer.Update(1.0 / 60.0)
	}

	assert.InDelta(t, 60.0, timer.AverageFPS(), 0.5)
}

func TestFPSTimerStableFPSRequiresSettledHistory(t *testing.T) {
	timer := NewFPSTimer()

	// Right after warm-up the history still contains the 1.0 seed values, so
	// the variance is enormous.
	for i := 0; i < framesToAverage; i++ {
		timer.Update(1.0 / 30.0)
	}
	assert.Equal(t, 0, timer.StableFPS())

	// Once the history fills with identical averages the variance drops to
	// zero and the stable value is reported.
	for i := 0; i < framesToAverage+historyEntries; i++ {
		timer.Update(1.0 / 30.0)
	}
	assert.Equal(t, 30, timer.StableFPS())
}

func TestFPSTimerHistoryShifts(t *testing.T) {
	timer := NewFPSTimer()
	for i := 0; i < historyEntries*2; i++ {
		timer.Update(1.0 / 120.0)
	}

	assert.Equal(t, timer.averageFPS, timer.historyFPS[historyEntries-1])
	assert.Equal(t, timer.historyFPS[0], timer.historyFPS[1])
}
