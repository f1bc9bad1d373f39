package model

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
)

// Graphics is the slice of the renderer surface models depend on. The real
// Renderer satisfies it; model tests supply a fake.
type Graphics interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error)
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, groups []renderer.BoundGroup) error
	DrawInstancePool(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, groups []renderer.BoundGroup, perSlot uint32, pool *instance_pool.Pool, base, count int) error
}

// InitConfig carries everything Init needs that is shared across models or
// produced by the loader: the group 0/1 layouts every pipeline includes, the
// compiled-in program sources, and the model's textures and samplers.
type InitConfig struct {
	GeneralLayout *wgpu.BindGroupLayout
	WorldLayout   *wgpu.BindGroupLayout

	VertexSource   string
	FragmentSource string

	// Texture views keyed by role: "diffuse", "normalMap", "reflectionMap",
	// "skybox". Views are shared; models never own them.
	Textures map[string]*wgpu.TextureView
	Sampler  *wgpu.Sampler
}

// Model is one drawable of the scene. Init builds the pipeline and static
// bind groups once; PrepareForDraw flushes per-frame uniform data;
// UpdatePerInstanceUniforms accumulates one instance; Draw issues the draw
// calls for every accumulated instance and resets the counter.
type Model interface {
	// Name returns the scene table name of this model.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Kind returns the renderable variant.
	//
	// Returns:
	//   - Kind: the model kind
	Kind() Kind

	// Init builds the pipeline, mesh buffers, and static bind groups.
	//
	// Parameters:
	//   - gfx: the renderer surface
	//   - cfg: shared layouts, program sources, and texture views
	//
	// Returns:
	//   - error: an error if any GPU resource fails to build
	Init(gfx Graphics, cfg InitConfig) error

	// PrepareForDraw flushes per-frame-varying uniform data to the GPU. It
	// never touches the pipeline or bind groups.
	//
	// Parameters:
	//   - gfx: the renderer surface
	PrepareForDraw(gfx Graphics)

	// UpdatePerInstanceUniforms accumulates the world transform block for one
	// instance and advances the instance counter.
	//
	// Parameters:
	//   - world: the transform block for this instance
	UpdatePerInstanceUniforms(world WorldUniforms)

	// InstanceCount returns the number of instances accumulated since the
	// last Draw.
	//
	// Returns:
	//   - int: the accumulated instance count
	InstanceCount() int

	// Draw binds the shared frame groups, this model's own groups, and its
	// mesh buffers, then issues the draws for every accumulated instance and
	// resets the instance counter to zero.
	//
	// Parameters:
	//   - gfx: the renderer surface
	//   - shared: the general and world bind groups, in group index order
	//
	// Returns:
	//   - error: an error if the draw cannot be encoded
	Draw(gfx Graphics, shared []renderer.BoundGroup) error

	// Release frees the GPU resources owned by this model.
	Release()
}

// baseModel carries the state every variant shares: the mesh and bind group
// providers, the accumulated per-instance transforms, and the instance
// counter that Draw resets.
type baseModel struct {
	name  string
	kind  Kind
	blend bool
	mesh  *Mesh

	pipelineKey   string
	meshProvider  bind_group_provider.BindGroupProvider
	modelProvider bind_group_provider.BindGroupProvider
	perProvider   bind_group_provider.BindGroupProvider

	worldPer WorldUniformPer
	counter  int
}

func (m *baseModel) Name() string {
	return m.name
}

func (m *baseModel) Kind() Kind {
	return m.kind
}

func (m *baseModel) InstanceCount() int {
	return m.counter
}

func (m *baseModel) UpdatePerInstanceUniforms(world WorldUniforms) {
	if m.counter < maxWorldInstances {
		m.worldPer.Worlds[m.counter] = world
	}
	m.counter++
}

func (m *baseModel) Release() {
	if m.meshProvider != nil {
		m.meshProvider.Release()
	}
	if m.modelProvider != nil {
		m.modelProvider.Release()
	}
	if m.perProvider != nil {
		m.perProvider.Release()
	}
}

// boundGroups assembles the full group list for a draw: the shared general
// and world groups at 0 and 1, the model group at 2, and optionally the
// per-instance group at 3.
func (m *baseModel) boundGroups(shared []renderer.BoundGroup, withPer bool) []renderer.BoundGroup {
	groups := make([]renderer.BoundGroup, 0, len(shared)+2)
	groups = append(groups, shared...)
	groups = append(groups, renderer.BoundGroup{Group: m.modelProvider.BindGroup()})
	if withPer && m.perProvider != nil {
		groups = append(groups, renderer.BoundGroup{Group: m.perProvider.BindGroup()})
	}
	return groups
}

// New builds the renderable variant for a scene table entry.
//
// Parameters:
//   - entry: the scene table entry
//   - mesh: the decoded geometry
//   - options: a variadic list of options applied to the variant
//
// Returns:
//   - Model: the newly created renderable
func New(entry SceneEntry, mesh *Mesh, options ...ModelBuilderOption) Model {
	base := baseModel{
		name:        entry.Name,
		kind:        entry.Kind,
		blend:       entry.Blend,
		mesh:        mesh,
		pipelineKey: "model_" + entry.Name,
	}

	var m Model
	switch entry.Kind {
	case KindFish:
		m = &fishModel{baseModel: base, info: entry.FishInfo}
	case KindInner:
		m = &innerModel{baseModel: base}
	case KindOutside:
		m = &outsideModel{baseModel: base}
	case KindSeaweed:
		m = &seaweedModel{baseModel: base}
	default:
		m = &genericModel{baseModel: base}
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}
