package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/reef-gfx/aquarium/engine"
	"github.com/reef-gfx/aquarium/engine/camera"
	"github.com/reef-gfx/aquarium/engine/light"
	"github.com/reef-gfx/aquarium/engine/loader"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
	"github.com/reef-gfx/aquarium/engine/scene"
	"github.com/reef-gfx/aquarium/engine/window"
)

func main() {
	var (
		fishCount    = flag.Int("fish-count", 500, "number of fish to simulate")
		msaa         = flag.Bool("msaa", false, "enable 4x multisample anti-aliasing")
		dynamicOff   = flag.Bool("dynamic-buffer-offset", false, "use one instance buffer with dynamic offsets instead of per-instance bind groups")
		asyncMap     = flag.Bool("async-buffer-mapping", false, "upload instance data through mapped staging buffers")
		fullscreen   = flag.Bool("fullscreen", false, "run in fullscreen on the primary monitor")
		gpu          = flag.String("gpu", "", "adapter preference: discrete, integrated or fallback")
		testDuration = flag.Duration("test-duration", 0, "quit automatically after this duration (0 runs until closed)")
		drawPerModel = flag.Bool("draw-per-model", false, "prepare every model before issuing any draw calls")
		alphaBlend   = flag.Bool("alpha-blending", true, "alpha-blend translucent models")
		printLog     = flag.Bool("print-log", false, "print an FPS summary on exit")
		profile      = flag.Bool("profile", false, "log per-second FPS and fish-count samples while running")
		vsync        = flag.Bool("vsync", true, "wait for vertical blank before presenting")
		width        = flag.Int("width", 1920, "window width in pixels")
		height       = flag.Int("height", 1080, "window height in pixels")
		assetDir     = flag.String("asset-dir", "assets", "directory holding models, textures and placement files")
		shaderDir    = flag.String("shader-dir", "", "directory of WGSL overrides for the built-in shaders")
		behaviorFile = flag.String("behaviors", "", "JSON file of scripted fish-count changes")
	)
	flag.Parse()

	// ── Window ──────────────────────────────────────────────────────────
	windowOpts := []window.WindowBuilderOption{
		window.WithTitle("Aquarium"),
		window.WithSize(*width, *height),
	}
	if *fullscreen {
		windowOpts = append(windowOpts, window.WithFullscreen())
	}
	win := window.NewWindow(windowOpts...)

	// ── Renderer ────────────────────────────────────────────────────────
	rendererOpts := []renderer.RendererBuilderOption{}
	if *msaa {
		rendererOpts = append(rendererOpts, renderer.WithMSAA(renderer.MSAA4x))
	}
	if !*vsync {
		rendererOpts = append(rendererOpts, renderer.WithPresentMode(renderer.PresentModeUncapped))
	}
	switch *gpu {
	case "":
	case "discrete":
		rendererOpts = append(rendererOpts, renderer.WithGPUPreference(renderer.GPUPreferenceDiscrete))
	case "integrated":
		rendererOpts = append(rendererOpts, renderer.WithGPUPreference(renderer.GPUPreferenceIntegrated))
	case "fallback":
		rendererOpts = append(rendererOpts, renderer.WithGPUPreference(renderer.GPUPreferenceFallback))
	default:
		fmt.Fprintf(os.Stderr, "unknown --gpu value %q\n", *gpu)
		os.Exit(2)
	}
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win, rendererOpts...)

	// ── Assets ──────────────────────────────────────────────────────────
	loaderOpts := []loader.LoaderBuilderOption{}
	if *shaderDir != "" {
		loaderOpts = append(loaderOpts, loader.WithShaderDir(*shaderDir))
	}
	assets := loader.NewLoader(*assetDir, loaderOpts...)

	var behaviors []loader.Behavior
	if *behaviorFile != "" {
		var err error
		behaviors, err = assets.LoadBehaviors(*behaviorFile)
		if err != nil {
			log.Printf("[Main] failed to load behaviors: %v", err)
			os.Exit(1)
		}
	}

	// ── Scene ───────────────────────────────────────────────────────────
	poolMode := instance_pool.ModePerInstanceGroups
	if *dynamicOff {
		poolMode = instance_pool.ModeDynamicOffsets
	}
	tank := scene.NewScene(r, assets,
		scene.WithLight(light.NewLight()),
		scene.WithPoolMode(poolMode),
		scene.WithAsyncUpload(*asyncMap),
		scene.WithDrawPerModel(*drawPerModel),
		scene.WithAlphaBlending(*alphaBlend),
	)

	// ── Aquarium ────────────────────────────────────────────────────────
	cam := camera.NewCamera(
		camera.WithAspect(float32(win.Width()) / float32(win.Height())),
	)
	app := engine.NewAquarium(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(tank),
		engine.WithCamera(cam),
		engine.WithFishCount(*fishCount),
		engine.WithBehaviors(behaviors),
		engine.WithTestDuration(*testDuration),
		engine.WithProfiling(*profile),
		engine.WithPrintLog(*printLog),
	)
	if err := app.Init(); err != nil {
		log.Printf("[Main] init failed: %v", err)
		os.Exit(1)
	}

	start := time.Now()
	app.Run()
	log.Printf("[Main] ran for %s", time.Since(start).Round(time.Millisecond))
}
