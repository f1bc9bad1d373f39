package model

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
)

// genericModel renders the static environment props. Its material group holds
// the light factor block, the shared sampler, and the diffuse texture, plus
// the normal and reflection maps when the asset carries them.
type genericModel struct {
	baseModel

	lightFactor LightFactorUniforms
}

var _ Model = &genericModel{}

func (m *genericModel) Init(gfx Graphics, cfg InitConfig) error {
	m.lightFactor = LightFactorUniforms{Shininess: 50, SpecularFactor: 1}

	m.meshProvider = bind_group_provider.NewBindGroupProvider(m.name + "_mesh")
	if err := gfx.InitMeshBuffers(m.meshProvider, m.mesh.Streams(), m.mesh.Indices, m.mesh.IndexCount, wgpu.IndexFormatUint16); err != nil {
		return fmt.Errorf("mesh buffers for %s: %w", m.name, err)
	}

	entries := []wgpu.BindGroupLayoutEntry{
		uniformEntry(0, wgpu.ShaderStageFragment, uint64(unsafe.Sizeof(m.lightFactor))),
		samplerEntry(1),
		textureEntry(2, wgpu.TextureViewDimension2D),
	}
	textures := map[int]*wgpu.TextureView{2: cfg.Textures["diffuse"]}
	if normal := cfg.Textures["normalMap"]; normal != nil {
		entries = append(entries, textureEntry(3, wgpu.TextureViewDimension2D))
		textures[3] = normal
	}
	if reflection := cfg.Textures["reflectionMap"]; reflection != nil {
		entries = append(entries,
			textureEntry(4, wgpu.TextureViewDimension2D),
			textureEntry(5, wgpu.TextureViewDimensionCube),
		)
		textures[4] = reflection
		textures[5] = cfg.Textures["skybox"]
	}

	m.modelProvider = bind_group_provider.NewBindGroupProvider(m.name + "_material")
	err := gfx.InitBindGroup(m.modelProvider,
		wgpu.BindGroupLayoutDescriptor{Label: m.name + " Material Layout", Entries: entries},
		textures, map[int]*wgpu.Sampler{1: cfg.Sampler}, nil)
	if err != nil {
		return fmt.Errorf("material bind group for %s: %w", m.name, err)
	}
	gfx.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: m.modelProvider, Binding: 0, Data: common.StructToBytes(&m.lightFactor)},
	})

	m.perProvider = bind_group_provider.NewBindGroupProvider(m.name + "_per")
	err = gfx.InitBindGroup(m.perProvider,
		wgpu.BindGroupLayoutDescriptor{
			Label:   m.name + " Per Layout",
			Entries: []wgpu.BindGroupLayoutEntry{uniformEntry(0, wgpu.ShaderStageVertex, uint64(unsafe.Sizeof(m.worldPer)))},
		},
		nil, nil, nil)
	if err != nil {
		return fmt.Errorf("per-instance bind group for %s: %w", m.name, err)
	}

	p := pipeline.NewPipeline(m.pipelineKey,
		pipeline.WithVertexSource(cfg.VertexSource),
		pipeline.WithFragmentSource(cfg.FragmentSource),
		pipeline.WithVertexLayouts(vertexLayouts(m.mesh.NormalMapped())...),
		pipeline.WithBindGroupLayouts(
			cfg.GeneralLayout,
			cfg.WorldLayout,
			m.modelProvider.BindGroupLayout(),
			m.perProvider.BindGroupLayout(),
		),
		pipeline.WithBlendEnabled(m.blend),
	)
	return gfx.RegisterPipelines(p)
}

func (m *genericModel) PrepareForDraw(gfx Graphics) {
	gfx.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: m.perProvider, Binding: 0, Data: common.StructToBytes(&m.worldPer)},
	})
}

func (m *genericModel) Draw(gfx Graphics, shared []renderer.BoundGroup) error {
	count := m.counter
	m.counter = 0
	if count == 0 {
		return nil
	}
	return gfx.DrawCall(m.pipelineKey, m.meshProvider, uint32(count), m.boundGroups(shared, true))
}
