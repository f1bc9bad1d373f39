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

// seaweedModel renders the swaying vegetation. Alongside the world transforms
// its per-instance group carries one sway phase per placement, advanced by
// the scene clock every frame.
type seaweedModel struct {
	baseModel

	lightFactor LightFactorUniforms
	seaweedPer  SeaweedPer
}

var _ Model = &seaweedModel{}

// SeaweedModel extends Model with the per-frame sway phase update.
type SeaweedModel interface {
	Model

	// UpdateSeaweedModelTime sets the sway phase for the next accumulated
	// instance. Called once per placement before UpdatePerInstanceUniforms.
	//
	// Parameters:
	//   - time: the sway phase in seconds
	UpdateSeaweedModelTime(time float32)
}

var _ SeaweedModel = &seaweedModel{}

func (m *seaweedModel) Init(gfx Graphics, cfg InitConfig) error {
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
			Label: m.name + " Per Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				uniformEntry(0, wgpu.ShaderStageVertex, uint64(unsafe.Sizeof(m.worldPer))),
				uniformEntry(1, wgpu.ShaderStageVertex, uint64(unsafe.Sizeof(m.seaweedPer))),
			},
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

func (m *seaweedModel) UpdateSeaweedModelTime(time float32) {
	if m.counter < maxWorldInstances {
		m.seaweedPer.Time[m.counter][0] = time
	}
}

func (m *seaweedModel) PrepareForDraw(gfx Graphics) {
	gfx.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: m.perProvider, Binding: 0, Data: common.StructToBytes(&m.worldPer)},
		{Provider: m.perProvider, Binding: 1, Data: common.StructToBytes(&m.seaweedPer)},
	})
}

func (m *seaweedModel) Draw(gfx Graphics, shared []renderer.BoundGroup) error {
	count := m.counter
	m.counter = 0
	if count == 0 {
		return nil
	}
	return gfx.DrawCall(m.pipelineKey, m.meshProvider, uint32(count), m.boundGroups(shared, true))
}
