package light

import "github.com/reef-gfx/aquarium/engine/model"

// Default scene lighting. One white directional-style light with a cool
// ambient term and underwater fog.
const (
	defaultAmbientRed   = 0.218
	defaultAmbientGreen = 0.502
	defaultAmbientBlue  = 0.706

	defaultFogPower  = 14.5
	defaultFogMult   = 1.66
	defaultFogOffset = 0.53
	defaultFogRed    = 0.34
	defaultFogGreen  = 0.462
	defaultFogBlue   = 0.431
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightColor [4]float32
	specular   [4]float32
	ambient    [4]float32

	fogPower  float32
	fogMult   float32
	fogOffset float32
	fogColor  [4]float32
}

// Light holds the scene-wide lighting and fog settings. The values are
// uploaded once into the shared general bind group and never change during a
// run.
type Light interface {
	// LightUniforms returns the light color block in GPU layout.
	//
	// Returns:
	//   - model.LightUniforms: light color, specular, and ambient terms
	LightUniforms() model.LightUniforms

	// FogUniforms returns the fog curve block in GPU layout.
	//
	// Returns:
	//   - model.FogUniforms: fog power, multiplier, offset, and color
	FogUniforms() model.FogUniforms
}

var _ Light = &lightImpl{}

// NewLight creates the scene lighting with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the lighting
//
// Returns:
//   - Light: the configured lighting
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		lightColor: [4]float32{1, 1, 1, 1},
		specular:   [4]float32{1, 1, 1, 1},
		ambient:    [4]float32{defaultAmbientRed, defaultAmbientGreen, defaultAmbientBlue, 0},
		fogPower:   defaultFogPower,
		fogMult:    defaultFogMult,
		fogOffset:  defaultFogOffset,
		fogColor:   [4]float32{defaultFogRed, defaultFogGreen, defaultFogBlue, 1},
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) LightUniforms() model.LightUniforms {
	return model.LightUniforms{
		LightColor: l.lightColor,
		Specular:   l.specular,
		Ambient:    l.ambient,
	}
}

func (l *lightImpl) FogUniforms() model.FogUniforms {
	return model.FogUniforms{
		FogPower:  l.fogPower,
		FogMult:   l.fogMult,
		FogOffset: l.fogOffset,
		FogColor:  l.fogColor,
	}
}
