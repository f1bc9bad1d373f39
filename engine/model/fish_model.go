package model

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
)

// fishModel renders one fish species. Per-instance state lives in an
// instance_pool.Pool owned by the model; one draw is issued per live fish
// with the pool block bound at group 3.
type fishModel struct {
	baseModel

	info *FishInfo
	pool *instance_pool.Pool

	lightFactor LightFactorUniforms
	fishVertex  FishVertexUniforms
}

var _ Model = &fishModel{}

// FishModel extends Model with the per-fish update and population surface the
// orchestrator drives each frame.
type FishModel interface {
	Model

	// Info returns the species swim parameters.
	//
	// Returns:
	//   - *FishInfo: the species parameters
	Info() *FishInfo

	// Pool returns the per-instance resource pool backing this species.
	//
	// Returns:
	//   - *instance_pool.Pool: the pool
	Pool() *instance_pool.Pool

	// Reallocate resizes the species population, growing the pool's GPU
	// allocation only when count exceeds what was previously allocated.
	//
	// Parameters:
	//   - count: the new species population
	//
	// Returns:
	//   - error: an error if pool reallocation fails
	Reallocate(count int) error

	// UpdateFishPerUniforms writes the position, heading, scale, and tail
	// phase for one fish and advances the instance counter.
	//
	// Parameters:
	//   - x, y, z: the fish position
	//   - nextX, nextY, nextZ: the position one animation step ahead, used to
	//     derive the heading
	//   - scale: the fish scale
	//   - time: the tail animation phase
	//   - index: the fish index within this species
	UpdateFishPerUniforms(x, y, z, nextX, nextY, nextZ, scale, time float32, index int)
}

var _ FishModel = &fishModel{}

func (m *fishModel) Info() *FishInfo {
	return m.info
}

func (m *fishModel) Pool() *instance_pool.Pool {
	return m.pool
}

func (m *fishModel) Init(gfx Graphics, cfg InitConfig) error {
	m.lightFactor = LightFactorUniforms{Shininess: 5, SpecularFactor: 0.3}
	m.fishVertex = FishVertexUniforms{
		FishLength:     m.info.FishLength,
		FishWaveLength: m.info.FishWaveLength,
		FishBendAmount: m.info.FishBendAmount,
	}

	if m.pool == nil {
		return fmt.Errorf("fish model %s has no instance pool attached", m.name)
	}

	m.meshProvider = bind_group_provider.NewBindGroupProvider(m.name + "_mesh")
	if err := gfx.InitMeshBuffers(m.meshProvider, m.mesh.Streams(), m.mesh.Indices, m.mesh.IndexCount, wgpu.IndexFormatUint16); err != nil {
		return fmt.Errorf("mesh buffers for %s: %w", m.name, err)
	}

	entries := []wgpu.BindGroupLayoutEntry{
		uniformEntry(0, wgpu.ShaderStageFragment, uint64(unsafe.Sizeof(m.lightFactor))),
		uniformEntry(1, wgpu.ShaderStageVertex, uint64(unsafe.Sizeof(m.fishVertex))),
		samplerEntry(2),
		textureEntry(3, wgpu.TextureViewDimension2D),
	}
	textures := map[int]*wgpu.TextureView{3: cfg.Textures["diffuse"]}
	if normal := cfg.Textures["normalMap"]; normal != nil {
		entries = append(entries, textureEntry(4, wgpu.TextureViewDimension2D))
		textures[4] = normal
	}
	if reflection := cfg.Textures["reflectionMap"]; reflection != nil {
		entries = append(entries,
			textureEntry(5, wgpu.TextureViewDimension2D),
			textureEntry(6, wgpu.TextureViewDimensionCube),
		)
		textures[5] = reflection
		textures[6] = cfg.Textures["skybox"]
	}

	m.modelProvider = bind_group_provider.NewBindGroupProvider(m.name + "_material")
	err := gfx.InitBindGroup(m.modelProvider,
		wgpu.BindGroupLayoutDescriptor{Label: m.name + " Material Layout", Entries: entries},
		textures, map[int]*wgpu.Sampler{2: cfg.Sampler}, nil)
	if err != nil {
		return fmt.Errorf("material bind group for %s: %w", m.name, err)
	}
	gfx.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: m.modelProvider, Binding: 0, Data: common.StructToBytes(&m.lightFactor)},
		{Provider: m.modelProvider, Binding: 1, Data: common.StructToBytes(&m.fishVertex)},
	})

	poolLayout, err := gfx.InstanceBlockLayout(m.pool.Mode() == instance_pool.ModeDynamicOffsets)
	if err != nil {
		return fmt.Errorf("instance layout for %s: %w", m.name, err)
	}

	p := pipeline.NewPipeline(m.pipelineKey,
		pipeline.WithVertexSource(cfg.VertexSource),
		pipeline.WithFragmentSource(cfg.FragmentSource),
		pipeline.WithVertexLayouts(vertexLayouts(m.mesh.NormalMapped())...),
		pipeline.WithBindGroupLayouts(
			cfg.GeneralLayout,
			cfg.WorldLayout,
			m.modelProvider.BindGroupLayout(),
			poolLayout,
		),
		pipeline.WithBlendEnabled(m.blend),
	)
	return gfx.RegisterPipelines(p)
}

func (m *fishModel) Reallocate(count int) error {
	return m.pool.Reallocate(count)
}

func (m *fishModel) UpdateFishPerUniforms(x, y, z, nextX, nextY, nextZ, scale, time float32, index int) {
	fish := m.pool.Instance(index)
	fish.WorldPosition = [3]float32{x, y, z}
	fish.NextPosition = [3]float32{nextX, nextY, nextZ}
	fish.Scale = scale
	fish.Time = time
	m.counter++
}

func (m *fishModel) PrepareForDraw(gfx Graphics) {
	if m.pool.AsyncUpload() {
		// The mapped staging path is flushed by the orchestrator once per
		// frame, after every species has updated its instances.
		return
	}
	if err := m.pool.UpdateAll(); err != nil {
		log.Printf("[Model] %s instance upload failed: %v", m.name, err)
	}
}

func (m *fishModel) Draw(gfx Graphics, shared []renderer.BoundGroup) error {
	count := m.counter
	m.counter = 0
	if count == 0 {
		return nil
	}
	return gfx.DrawInstancePool(m.pipelineKey, m.meshProvider, m.boundGroups(shared, false), 3, m.pool, 0, count)
}

func (m *fishModel) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
	m.baseModel.Release()
}
