package model

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// maxWorldInstances is the number of world transforms one renderable can
// accumulate per frame. Placement files never exceed this.
const maxWorldInstances = 20

// WorldUniforms is the per-placement transform block computed by the
// orchestrator for every world matrix of a renderable.
type WorldUniforms struct {
	World                 [16]float32
	WorldInverseTranspose [16]float32
	WorldViewProjection   [16]float32
}

// WorldUniformPer batches the WorldUniforms of every accumulated instance so
// one buffer write covers the whole renderable.
type WorldUniformPer struct {
	Worlds [maxWorldInstances]WorldUniforms
}

// LightWorldPositionUniform is the shared per-frame view block bound at group
// 1 for every pipeline.
type LightWorldPositionUniform struct {
	LightWorldPos  [3]float32
	Padding        float32
	ViewProjection [16]float32
	ViewInverse    [16]float32
}

// LightUniforms is the scene lighting block, constant for the run.
type LightUniforms struct {
	LightColor [4]float32
	Specular   [4]float32
	Ambient    [4]float32
}

// FogUniforms is the underwater fog block, constant for the run.
type FogUniforms struct {
	FogPower  float32
	FogMult   float32
	FogOffset float32
	Padding   float32
	FogColor  [4]float32
}

// LightFactorUniforms is the per-material response block.
type LightFactorUniforms struct {
	Shininess      float32
	SpecularFactor float32
	Padding        [2]float32
}

// FishVertexUniforms carries the per-species swim deformation constants.
type FishVertexUniforms struct {
	FishLength     float32
	FishWaveLength float32
	FishBendAmount float32
	Padding        float32
}

// InnerUniforms is the refraction block for the tank globe interior.
type InnerUniforms struct {
	Eta             float32
	TankColorFudge  float32
	RefractionFudge float32
	Padding         float32
}

// SeaweedPer carries one sway phase per accumulated seaweed instance,
// padded to a vec4 stride per std140.
type SeaweedPer struct {
	Time [maxWorldInstances][4]float32
}

// Vertex attribute shader locations shared by every pipeline.
const (
	locPosition = 0
	locNormal   = 1
	locTexCoord = 2
	locTangent  = 3
	locBinormal = 4
)

// vertexLayouts builds one buffer layout per attribute stream. Tangent and
// binormal streams are only present when the model carries a normal map.
func vertexLayouts(normalMapped bool) []wgpu.VertexBufferLayout {
	layouts := []wgpu.VertexBufferLayout{
		{
			ArrayStride: 12,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: locPosition},
			},
		},
		{
			ArrayStride: 12,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: locNormal},
			},
		},
		{
			ArrayStride: 8,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: locTexCoord},
			},
		},
	}
	if normalMapped {
		layouts = append(layouts,
			wgpu.VertexBufferLayout{
				ArrayStride: 12,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: locTangent},
				},
			},
			wgpu.VertexBufferLayout{
				ArrayStride: 12,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: locBinormal},
				},
			},
		)
	}
	return layouts
}
