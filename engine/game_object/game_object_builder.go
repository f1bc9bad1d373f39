package game_object

import "github.com/go-gl/mathgl/mgl32"

// GameObjectBuilderOption is a function that configures a gameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithWorldMatrix is an option builder that sets the placement's world matrix.
// The inverse transpose is computed here so the per-frame path only multiplies.
//
// Parameters:
//   - world: the world matrix in column-major order
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the world matrix option to a gameObject
func WithWorldMatrix(world [16]float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.world = mgl32.Mat4(world)
		g.worldInverseTranspose = g.world.Inv().Transpose()
	}
}

// WithSwayPhase is an option builder that sets the sway clock offset for
// seaweed placements.
//
// Parameters:
//   - phase: the clock offset in seconds
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the sway phase option to a gameObject
func WithSwayPhase(phase float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.swayPhase = phase
	}
}
