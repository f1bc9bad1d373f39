package scene

import (
	"github.com/reef-gfx/aquarium/engine/light"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
)

// SceneBuilderOption is a function that configures an aquariumScene during construction.
type SceneBuilderOption func(*aquariumScene)

// WithLight is an option builder that sets the scene lighting.
//
// Parameters:
//   - l: the lighting to use
//
// Returns:
//   - SceneBuilderOption: a function that applies the lighting option to an aquariumScene
func WithLight(l light.Light) SceneBuilderOption {
	return func(s *aquariumScene) {
		s.lighting = l
	}
}

// WithPoolMode is an option builder that selects how fish instance blocks are
// bound during draws.
//
// Parameters:
//   - mode: per-instance bind groups or a single group with dynamic offsets
//
// Returns:
//   - SceneBuilderOption: a function that applies the pool mode option to an aquariumScene
func WithPoolMode(mode instance_pool.Mode) SceneBuilderOption {
	return func(s *aquariumScene) {
		s.poolMode = mode
	}
}

// WithDrawPerModel is an option builder that batches all uniform flushes
// before any draw call instead of interleaving update and draw per model.
//
// Parameters:
//   - enabled: whether to batch draws per model
//
// Returns:
//   - SceneBuilderOption: a function that applies the draw-per-model option to an aquariumScene
func WithDrawPerModel(enabled bool) SceneBuilderOption {
	return func(s *aquariumScene) {
		s.drawPerModel = enabled
	}
}

// WithAlphaBlending is an option builder that gates the blend state of the
// transparent scene entries.
//
// Parameters:
//   - enabled: whether transparent entries blend (default true)
//
// Returns:
//   - SceneBuilderOption: a function that applies the alpha blending option to an aquariumScene
func WithAlphaBlending(enabled bool) SceneBuilderOption {
	return func(s *aquariumScene) {
		s.alphaBlending = enabled
	}
}

// WithAsyncUpload is an option builder that routes fish instance uploads
// through mapped staging buffers instead of direct queue writes.
//
// Parameters:
//   - enabled: whether to stage uploads asynchronously
//
// Returns:
//   - SceneBuilderOption: a function that applies the async upload option to an aquariumScene
func WithAsyncUpload(enabled bool) SceneBuilderOption {
	return func(s *aquariumScene) {
		s.asyncUpload = enabled
	}
}
