package model

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawRecord struct {
	pipelineKey   string
	instanceCount uint32
	groupCount    int
}

type poolDrawRecord struct {
	pipelineKey string
	perSlot     uint32
	base        int
	count       int
}

// fakeGraphics records draw traffic without touching a GPU.
type fakeGraphics struct {
	registered []string
	writes     int
	draws      []drawRecord
	poolDraws  []poolDrawRecord
}

func (f *fakeGraphics) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		f.registered = append(f.registered, p.PipelineKey())
	}
	return nil
}

func (f *fakeGraphics) InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error) {
	return new(wgpu.BindGroupLayout), nil
}

func (f *fakeGraphics) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error {
	provider.SetIndexCount(indexCount)
	return nil
}

func (f *fakeGraphics) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error {
	provider.SetBindGroupLayout(new(wgpu.BindGroupLayout))
	provider.SetBindGroup(new(wgpu.BindGroup))
	return nil
}

func (f *fakeGraphics) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.writes += len(writes)
}

func (f *fakeGraphics) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, groups []renderer.BoundGroup) error {
	f.draws = append(f.draws, drawRecord{pipelineKey, instanceCount, len(groups)})
	return nil
}

func (f *fakeGraphics) DrawInstancePool(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, groups []renderer.BoundGroup, perSlot uint32, pool *instance_pool.Pool, base, count int) error {
	f.poolDraws = append(f.poolDraws, poolDrawRecord{pipelineKey, perSlot, base, count})
	return nil
}

var _ Graphics = &fakeGraphics{}

// fakePoolDevice satisfies instance_pool.Device for fish model tests.
type fakePoolDevice struct{}

func (fakePoolDevice) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return new(wgpu.Buffer), nil
}
func (fakePoolDevice) CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error) {
	return new(wgpu.Buffer), make([]byte, size), nil
}
func (fakePoolDevice) CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error) {
	return new(wgpu.BindGroup), nil
}
func (fakePoolDevice) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error { return nil }
func (fakePoolDevice) MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error {
	return nil
}
func (fakePoolDevice) UnmapBuffer(buf *wgpu.Buffer) error                   { return nil }
func (fakePoolDevice) EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error { return nil }
func (fakePoolDevice) DestroyBuffer(buf *wgpu.Buffer)                       {}
func (fakePoolDevice) DestroyBindGroup(bg *wgpu.BindGroup)                  {}

func testMesh() *Mesh {
	return &Mesh{
		Positions:  make([]byte, 36),
		Normals:    make([]byte, 36),
		TexCoords:  make([]byte, 24),
		Indices:    make([]byte, 6),
		IndexCount: 3,
	}
}

func testConfig() InitConfig {
	return InitConfig{
		GeneralLayout:  new(wgpu.BindGroupLayout),
		WorldLayout:    new(wgpu.BindGroupLayout),
		VertexSource:   "vs",
		FragmentSource: "fs",
		Textures: map[string]*wgpu.TextureView{
			"diffuse":       new(wgpu.TextureView),
			"normalMap":     new(wgpu.TextureView),
			"reflectionMap": new(wgpu.TextureView),
			"skybox":        new(wgpu.TextureView),
		},
		Sampler: new(wgpu.Sampler),
	}
}

func TestGenericModelInstanceCounterResets(t *testing.T) {
	gfx := &fakeGraphics{}
	m := New(SceneEntry{Name: "RockA", Kind: KindGeneric}, testMesh())
	require.NoError(t, m.Init(gfx, testConfig()))

	for i := 0; i < 3; i++ {
		m.UpdatePerInstanceUniforms(WorldUniforms{})
	}
	assert.Equal(t, 3, m.InstanceCount())

	require.NoError(t, m.Draw(gfx, []renderer.BoundGroup{{}, {}}))
	assert.Equal(t, 0, m.InstanceCount())

	require.Len(t, gfx.draws, 1)
	assert.Equal(t, uint32(3), gfx.draws[0].instanceCount)
	assert.Equal(t, "model_RockA", gfx.draws[0].pipelineKey)
	// Shared general/world groups plus material and per-instance groups.
	assert.Equal(t, 4, gfx.draws[0].groupCount)
}

func TestGenericModelDrawWithNoInstancesIsSkipped(t *testing.T) {
	gfx := &fakeGraphics{}
	m := New(SceneEntry{Name: "RockB", Kind: KindGeneric}, testMesh())
	require.NoError(t, m.Init(gfx, testConfig()))

	require.NoError(t, m.Draw(gfx, nil))
	assert.Empty(t, gfx.draws)
}

func TestFishModelUpdatesPoolInstances(t *testing.T) {
	gfx := &fakeGraphics{}
	pool := instance_pool.NewPool(fakePoolDevice{})
	require.NoError(t, pool.Reallocate(4))

	m := New(FishTable[0], testMesh(), WithPool(pool))
	fm, ok := m.(FishModel)
	require.True(t, ok)
	require.NoError(t, m.Init(gfx, testConfig()))

	fm.UpdateFishPerUniforms(1, 2, 3, 4, 5, 6, 1.5, 0.25, 0)
	fm.UpdateFishPerUniforms(7, 8, 9, 10, 11, 12, 2.0, 0.5, 1)
	assert.Equal(t, 2, m.InstanceCount())

	first := pool.Instance(0)
	assert.Equal(t, [3]float32{1, 2, 3}, first.WorldPosition)
	assert.Equal(t, [3]float32{4, 5, 6}, first.NextPosition)
	assert.Equal(t, float32(1.5), first.Scale)
	assert.Equal(t, float32(0.25), first.Time)

	require.NoError(t, m.Draw(gfx, []renderer.BoundGroup{{}, {}}))
	assert.Equal(t, 0, m.InstanceCount())

	require.Len(t, gfx.poolDraws, 1)
	assert.Equal(t, 2, gfx.poolDraws[0].count)
	assert.Equal(t, uint32(3), gfx.poolDraws[0].perSlot)
	assert.Equal(t, 0, gfx.poolDraws[0].base)
}

func TestFishModelInitRequiresPool(t *testing.T) {
	gfx := &fakeGraphics{}
	m := New(FishTable[0], testMesh())
	assert.Error(t, m.Init(gfx, testConfig()))
}

func TestSeaweedModelTracksSwayPhase(t *testing.T) {
	gfx := &fakeGraphics{}
	m := New(SceneEntry{Name: "SeaweedA", Kind: KindSeaweed, Blend: true}, testMesh())
	require.NoError(t, m.Init(gfx, testConfig()))

	sm, ok := m.(SeaweedModel)
	require.True(t, ok)

	sm.UpdateSeaweedModelTime(1.25)
	m.UpdatePerInstanceUniforms(WorldUniforms{})
	sm.UpdateSeaweedModelTime(2.5)
	m.UpdatePerInstanceUniforms(WorldUniforms{})

	impl := m.(*seaweedModel)
	assert.Equal(t, float32(1.25), impl.seaweedPer.Time[0][0])
	assert.Equal(t, float32(2.5), impl.seaweedPer.Time[1][0])

	require.NoError(t, m.Draw(gfx, nil))
	assert.Equal(t, 0, m.InstanceCount())
}

func TestMeshStreamsFollowNormalMapPresence(t *testing.T) {
	plain := testMesh()
	assert.Len(t, plain.Streams(), 3)
	assert.False(t, plain.NormalMapped())

	mapped := testMesh()
	mapped.Tangents = make([]byte, 36)
	mapped.Binormals = make([]byte, 36)
	assert.Len(t, mapped.Streams(), 5)
	assert.True(t, mapped.NormalMapped())
}

func TestFishTableOrderAndSizes(t *testing.T) {
	require.Len(t, FishTable, 5)
	assert.Equal(t, "SmallFishA", FishTable[0].Name)
	assert.Equal(t, FishSmall, FishTable[0].FishInfo.Size)
	assert.Equal(t, FishMedium, FishTable[1].FishInfo.Size)
	assert.Equal(t, FishMedium, FishTable[2].FishInfo.Size)
	assert.Equal(t, FishBig, FishTable[3].FishInfo.Size)
	assert.Equal(t, FishBig, FishTable[4].FishInfo.Size)
}
