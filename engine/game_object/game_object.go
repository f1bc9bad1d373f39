package game_object

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/reef-gfx/aquarium/engine/model"
)

// gameObject is the implementation of the GameObject interface.
type gameObject struct {
	name  string
	model model.Model

	world                 mgl32.Mat4
	worldInverseTranspose mgl32.Mat4

	// swayPhase offsets the sway clock for seaweed placements so blades do
	// not all move in lockstep.
	swayPhase float32
}

// GameObject is one placed copy of a model in the scene. Placements are
// static, so the world matrix and its inverse transpose are computed once at
// construction. Each frame the object folds the current view projection into
// its transform block and accumulates it on the model.
type GameObject interface {
	// Name returns the scene table name of the placed model.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Model returns the model this placement draws.
	//
	// Returns:
	//   - model.Model: the placed model
	Model() model.Model

	// World returns the world matrix of this placement.
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	World() mgl32.Mat4

	// PushInstance accumulates this placement's transform block on its model
	// for the current frame. For seaweed placements the sway clock is also
	// advanced.
	//
	// Parameters:
	//   - viewProjection: the frame's combined view projection matrix
	//   - clock: the scene clock in seconds, used for sway animation
	PushInstance(viewProjection mgl32.Mat4, clock float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a placement for the given model with the specified options.
//
// Parameters:
//   - m: the model this placement draws
//   - options: functional options to configure the placement
//
// Returns:
//   - GameObject: the newly created placement
func NewGameObject(m model.Model, options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		name:                  m.Name(),
		model:                 m,
		world:                 mgl32.Ident4(),
		worldInverseTranspose: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Model() model.Model {
	return g.model
}

func (g *gameObject) World() mgl32.Mat4 {
	return g.world
}

func (g *gameObject) PushInstance(viewProjection mgl32.Mat4, clock float32) {
	if sw, ok := g.model.(model.SeaweedModel); ok {
		sw.UpdateSeaweedModelTime(clock + g.swayPhase)
	}
	wvp := viewProjection.Mul4(g.world)
	g.model.UpdatePerInstanceUniforms(model.WorldUniforms{
		World:                 [16]float32(g.world),
		WorldInverseTranspose: [16]float32(g.worldInverseTranspose),
		WorldViewProjection:   [16]float32(wvp),
	})
}
