package engine

import (
	"time"

	"github.com/reef-gfx/aquarium/engine/camera"
	"github.com/reef-gfx/aquarium/engine/loader"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/scene"
	"github.com/reef-gfx/aquarium/engine/window"
)

// AquariumBuilderOption is a functional option for configuring an Aquarium.
// Use the With* functions to create options that are applied directly to the
// orchestrator instance.
type AquariumBuilderOption func(*aquarium)

// WithWindow sets the window the orchestrator drives its frame loop from.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithWindow(w window.Window) AquariumBuilderOption {
	return func(a *aquarium) {
		a.window = w
	}
}

// WithRenderer sets the renderer used for the frame lifecycle.
//
// Parameters:
//   - r: a pre-configured Renderer instance
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) AquariumBuilderOption {
	return func(a *aquarium) {
		a.renderer = r
	}
}

// WithScene sets the scene the orchestrator draws each frame.
//
// Parameters:
//   - s: a pre-configured Scene instance
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithScene(s scene.Scene) AquariumBuilderOption {
	return func(a *aquarium) {
		a.scene = s
	}
}

// WithCamera sets the orbiting camera.
//
// Parameters:
//   - c: a pre-configured Camera instance
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithCamera(c camera.Camera) AquariumBuilderOption {
	return func(a *aquarium) {
		a.camera = c
	}
}

// WithFishCount sets the starting fish population. Negative values clamp
// to zero.
//
// Parameters:
//   - count: the starting population (default 500)
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithFishCount(count int) AquariumBuilderOption {
	return func(a *aquarium) {
		if count < 0 {
			count = 0
		}
		a.curFishCount = count
	}
}

// WithBehaviors sets the scripted fish-count changes consumed one head entry
// at a time as frames elapse.
//
// Parameters:
//   - behaviors: the behavior queue in file order
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithBehaviors(behaviors []loader.Behavior) AquariumBuilderOption {
	return func(a *aquarium) {
		a.behaviors = behaviors
	}
}

// WithTestDuration makes the orchestrator stop on its own after the given
// duration has elapsed since the last population change.
//
// Parameters:
//   - d: the run duration (0 = run until the window closes)
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithTestDuration(d time.Duration) AquariumBuilderOption {
	return func(a *aquarium) {
		a.testDuration = d
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithProfiling(enabled bool) AquariumBuilderOption {
	return func(a *aquarium) {
		a.profilingEnabled = enabled
	}
}

// WithPrintLog enables the average FPS report when the run ends.
//
// Parameters:
//   - enabled: if true, prints the report
//
// Returns:
//   - AquariumBuilderOption: option function to apply
func WithPrintLog(enabled bool) AquariumBuilderOption {
	return func(a *aquarium) {
		a.printLog = enabled
	}
}
