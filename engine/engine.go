package engine

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/camera"
	"github.com/reef-gfx/aquarium/engine/loader"
	"github.com/reef-gfx/aquarium/engine/model"
	"github.com/reef-gfx/aquarium/engine/profiler"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/scene"
	"github.com/reef-gfx/aquarium/engine/window"
)

// Fish motion constants shared by every species.
const (
	sceneSpeed      = 1.0
	fishSpeed       = 0.124
	fishOffset      = 0.52
	fishHeight      = 25.0
	fishHeightRange = 1.0
	fishXClock      = 1.0
	fishYClock      = 0.556
	fishZClock      = 1.0
	fishTailSpeed   = 1.0
	tailOffsetMult  = 1.0
)

// Population thresholds for the per-species distribution.
const (
	numFishSmall     = 100
	numFishMedium    = 1000
	numFishBig       = 10000
	numFishLeftSmall = 80
	numFishLeftBig   = 160
)

// defaultFishCount is the starting population when none is configured.
const defaultFishCount = 500

// aquarium is the implementation of the Aquarium interface.
type aquarium struct {
	window   window.Window
	renderer renderer.Renderer
	scene    scene.Scene
	camera   camera.Camera

	fpsTimer         *profiler.FPSTimer
	profiler         *profiler.Profiler
	profilingEnabled bool
	printLog         bool

	behaviors []loader.Behavior

	curFishCount  int
	preFishCount  int
	speciesCounts []int
	random        common.RandomStream

	clock        float64
	lastFrame    time.Time
	benchStart   time.Time
	testDuration time.Duration

	quit     bool
	quitOnce sync.Once
}

// Aquarium is the benchmark orchestrator. It owns the frame sequence: camera
// advance, behavior queue, fish population and simulation, scene draw, and
// frame pacing stats.
type Aquarium interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driving the scene.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Scene returns the aquarium scene.
	//
	// Returns:
	//   - scene.Scene: the scene instance
	Scene() scene.Scene

	// FishCount returns the current requested fish population.
	//
	// Returns:
	//   - int: the fish count
	FishCount() int

	// SetFishCount changes the requested fish population. The change takes
	// effect on the next frame through the reallocation path. Negative values
	// clamp to zero.
	//
	// Parameters:
	//   - count: the requested population
	SetFishCount(count int)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Init loads the scene and allocates the initial fish population. Must be
	// called once before Run.
	//
	// Returns:
	//   - error: an error if scene loading or the initial allocation fails
	Init() error

	// Run drives the frame loop until the window closes, the test duration
	// elapses, or Quit is called. Blocks.
	Run()

	// Quit stops the frame loop. Safe to call multiple times.
	Quit()
}

var _ Aquarium = &aquarium{}

// NewAquarium creates an Aquarium with the specified options.
//
// Parameters:
//   - options: functional options to configure the orchestrator
//
// Returns:
//   - Aquarium: the configured orchestrator (not yet initialized)
func NewAquarium(options ...AquariumBuilderOption) Aquarium {
	a := &aquarium{
		fpsTimer:     profiler.NewFPSTimer(),
		profiler:     profiler.NewProfiler(),
		curFishCount: defaultFishCount,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// CalculateFishCount distributes a total population over the species table:
// big fish first (capped at one, or two for populations of at least one
// hundred), then medium fish by the threshold rules, then small fish take
// whatever remains.
//
// Parameters:
//   - total: the requested population
//
// Returns:
//   - []int: per-species counts indexed like model.FishTable
func CalculateFishCount(total int) []int {
	counts := make([]int, len(model.FishTable))
	numLeft := total
	for _, size := range []model.FishSize{model.FishBig, model.FishMedium, model.FishSmall} {
		for i, entry := range model.FishTable {
			if entry.FishInfo.Size != size {
				continue
			}
			num := numLeft
			switch size {
			case model.FishBig:
				most := 1
				if total >= numFishSmall {
					most = 2
				}
				if num > most {
					num = most
				}
			case model.FishMedium:
				switch {
				case total < numFishMedium:
					if num > total/10 {
						num = total / 10
					}
				case total < numFishBig:
					if num > numFishLeftSmall {
						num = numFishLeftSmall
					}
				default:
					if num > numFishLeftBig {
						num = numFishLeftBig
					}
				}
			}
			if num < 0 {
				num = 0
			}
			numLeft -= num
			counts[i] = num
		}
	}
	return counts
}

func (a *aquarium) Window() window.Window {
	return a.window
}

func (a *aquarium) Renderer() renderer.Renderer {
	return a.renderer
}

func (a *aquarium) Scene() scene.Scene {
	return a.scene
}

func (a *aquarium) FishCount() int {
	return a.curFishCount
}

func (a *aquarium) SetFishCount(count int) {
	if count < 0 {
		count = 0
	}
	a.curFishCount = count
}

func (a *aquarium) EnableProfiler() {
	a.profilingEnabled = true
}

func (a *aquarium) DisableProfiler() {
	a.profilingEnabled = false
}

func (a *aquarium) Init() error {
	if err := a.scene.Init(); err != nil {
		return fmt.Errorf("scene init: %w", err)
	}

	a.window.SetResizeCallback(func(width, height int) {
		a.renderer.Resize(width, height)
		if height > 0 {
			a.camera.SetAspect(float32(width) / float32(height))
		}
	})
	if h := a.window.Height(); h > 0 {
		a.camera.SetAspect(float32(a.window.Width()) / float32(h))
	}

	// Digit keys jump to preset populations, matching the benchmark's
	// selectable fish counts.
	presets := map[uint32]int{
		common.Key0: 0,
		common.Key1: 1,
		common.Key2: 10,
		common.Key3: 100,
		common.Key4: 500,
		common.Key5: 1000,
		common.Key6: 5000,
		common.Key7: 10000,
		common.Key8: 20000,
		common.Key9: 30000,
	}
	a.window.SetKeyDownCallback(func(key uint32) {
		if count, ok := presets[key]; ok {
			a.SetFishCount(count)
		}
	})

	// Allocate the starting population before the first frame so the loop
	// never reallocates on its first pass.
	if err := a.applyFishCount(); err != nil {
		return err
	}
	a.preFishCount = a.curFishCount

	now := time.Now()
	a.lastFrame = now
	a.benchStart = now
	return nil
}

func (a *aquarium) Run() {
	a.window.SetUpdateCallback(a.frame)
	a.window.ProcessMessages()

	if a.printLog {
		if stable := a.fpsTimer.StableFPS(); stable > 0 {
			log.Printf("[Engine] average FPS: %d", stable)
		} else {
			log.Printf("[Engine] average FPS: %.0f (not settled)", a.fpsTimer.AverageFPS())
		}
	}
}

func (a *aquarium) Quit() {
	a.quitOnce.Do(func() {
		a.quit = true
		if err := a.window.Close(); err != nil {
			log.Printf("[Engine] window close: %v", err)
		}
	})
}

// frame runs one full frame: clock advance, behavior queue, population
// reallocation, fish simulation, scene draw, and pacing stats.
func (a *aquarium) frame() {
	if a.quit {
		return
	}

	now := time.Now()
	elapsed := now.Sub(a.lastFrame).Seconds()
	a.lastFrame = now
	a.clock += elapsed * sceneSpeed

	// The same pseudo-random sequence drives the fish every frame, so each
	// fish keeps its trajectory regardless of population changes.
	a.random.Reset()

	frame := a.camera.Advance(elapsed)
	a.scene.UpdateGlobalUniforms(frame)

	a.stepBehaviors()

	if a.curFishCount != a.preFishCount {
		if err := a.applyFishCount(); err != nil {
			log.Printf("[Engine] fish reallocation: %v", err)
			a.Quit()
			return
		}
		a.preFishCount = a.curFishCount
		a.benchStart = now
	}

	a.updateFish()

	if err := a.renderer.BeginFrame(); err != nil {
		log.Printf("[Engine] begin frame: %v", err)
		a.Quit()
		return
	}
	if err := a.scene.Draw(frame, float32(a.clock)); err != nil {
		log.Printf("[Engine] draw: %v", err)
		a.Quit()
		return
	}
	a.renderer.EndFrame()
	a.renderer.Present()

	a.fpsTimer.Update(elapsed)
	if a.profilingEnabled {
		a.profiler.Tick(a.curFishCount)
	}

	if a.testDuration > 0 && now.Sub(a.benchStart) > a.testDuration {
		a.Quit()
	}
}

// stepBehaviors pops the head of the behavior queue when its delay reaches
// zero and applies its population change, otherwise decrements the delay.
func (a *aquarium) stepBehaviors() {
	if len(a.behaviors) == 0 {
		return
	}
	head := &a.behaviors[0]
	if head.Frame > 0 {
		head.Frame--
		return
	}
	if head.Op == "+" {
		a.curFishCount += head.Count
	} else {
		a.curFishCount -= head.Count
	}
	if a.curFishCount < 0 {
		a.curFishCount = 0
	}
	a.behaviors = a.behaviors[1:]
	log.Printf("[Engine] fish count %d", a.curFishCount)
}

// applyFishCount redistributes the population over the species and resizes
// each species pool.
func (a *aquarium) applyFishCount() error {
	counts := CalculateFishCount(a.curFishCount)
	for i, f := range a.scene.FishModels() {
		if i >= len(counts) {
			break
		}
		if err := f.Reallocate(counts[i]); err != nil {
			return fmt.Errorf("reallocate %s to %d: %w", f.Name(), counts[i], err)
		}
	}
	a.speciesCounts = counts
	return nil
}

// updateFish recomputes every fish's position, heading, scale, and tail phase
// from the deterministic random stream and the scene clock.
func (a *aquarium) updateFish() {
	for i, f := range a.scene.FishModels() {
		numFish := 0
		if i < len(a.speciesCounts) {
			numFish = a.speciesCounts[i]
		}
		info := f.Info()

		baseClock := float32(a.clock) * fishSpeed
		height := float32(fishHeight) + info.HeightOffset
		heightRange := float32(fishHeightRange) * info.HeightRange
		tailSpeed := info.TailSpeed * fishTailSpeed

		for ii := 0; ii < numFish; ii++ {
			clock := baseClock + float32(ii)*fishOffset
			speed := info.Speed + a.random.Next()*info.SpeedRange
			scale := 1 + a.random.Next()
			xRadius := info.Radius + a.random.Next()*info.RadiusRange
			yRadius := 2 + a.random.Next()*heightRange
			zRadius := info.Radius + a.random.Next()*info.RadiusRange

			speedClock := clock * speed
			xClock := speedClock * fishXClock
			yClock := speedClock * fishYClock
			zClock := speedClock * fishZClock

			tail := float32(math.Mod(
				float64((float32(a.clock)+float32(ii)*tailOffsetMult)*tailSpeed*speed),
				2*math.Pi))

			f.UpdateFishPerUniforms(
				sin32(xClock)*xRadius,
				sin32(yClock)*yRadius+height,
				cos32(zClock)*zRadius,
				sin32(xClock-0.04)*xRadius,
				sin32(yClock-0.01)*yRadius+height,
				cos32(zClock-0.04)*zRadius,
				scale, tail, ii)
		}
	}
}

func sin32(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func cos32(x float32) float32 {
	return float32(math.Cos(float64(x)))
}
