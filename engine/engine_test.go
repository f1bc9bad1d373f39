package engine

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reef-gfx/aquarium/engine/camera"
	"github.com/reef-gfx/aquarium/engine/loader"
	"github.com/reef-gfx/aquarium/engine/model"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
)

// fakePoolDevice satisfies instance_pool.Device with inert handles so fish
// pools can be exercised without a GPU.
type fakePoolDevice struct{}

func (d *fakePoolDevice) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return new(wgpu.Buffer), nil
}

func (d *fakePoolDevice) CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error) {
	return new(wgpu.Buffer), make([]byte, size), nil
}

func (d *fakePoolDevice) CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error) {
	return new(wgpu.BindGroup), nil
}

func (d *fakePoolDevice) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	return nil
}

func (d *fakePoolDevice) MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error {
	callback(make([]byte, size), nil)
	return nil
}

func (d *fakePoolDevice) UnmapBuffer(buf *wgpu.Buffer) error { return nil }

func (d *fakePoolDevice) EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error { return nil }

func (d *fakePoolDevice) DestroyBuffer(buf *wgpu.Buffer) {}

func (d *fakePoolDevice) DestroyBindGroup(bg *wgpu.BindGroup) {}

// fishOnlyScene is a scene.Scene stand-in exposing only fish models.
type fishOnlyScene struct {
	fish []model.FishModel
}

func (s *fishOnlyScene) Init() error                                  { return nil }
func (s *fishOnlyScene) FishModels() []model.FishModel                { return s.fish }
func (s *fishOnlyScene) Models() []model.Model                        { return nil }
func (s *fishOnlyScene) UpdateGlobalUniforms(frame camera.FrameState) {}
func (s *fishOnlyScene) Draw(frame camera.FrameState, clock float32) error {
	return nil
}
func (s *fishOnlyScene) Release() {}

func newTestFish(t *testing.T, entry model.SceneEntry) model.FishModel {
	t.Helper()
	pool := instance_pool.NewPool(&fakePoolDevice{},
		instance_pool.WithMode(instance_pool.ModeDynamicOffsets))
	mesh := &model.Mesh{Positions: make([]byte, 36), Indices: make([]byte, 6), IndexCount: 3}
	m := model.New(entry, mesh, model.WithPool(pool))
	fish, ok := m.(model.FishModel)
	require.True(t, ok)
	return fish
}

func TestCalculateFishCountDistribution(t *testing.T) {
	// Table order is SmallFishA, MediumFishA, MediumFishB, BigFishA, BigFishB.
	assert.Equal(t, []int{396, 50, 50, 2, 2}, CalculateFishCount(500))
	assert.Equal(t, []int{38, 5, 5, 1, 1}, CalculateFishCount(50))
	assert.Equal(t, []int{0, 0, 0, 0, 0}, CalculateFishCount(0))
	assert.Equal(t, []int{19676, 160, 160, 2, 2}, CalculateFishCount(20000))
}

func TestCalculateFishCountDeterministicAndConserving(t *testing.T) {
	for _, total := range []int{0, 1, 7, 99, 100, 500, 999, 1000, 9999, 10000, 50000} {
		first := CalculateFishCount(total)
		second := CalculateFishCount(total)
		assert.Equal(t, first, second, "total %d", total)

		sum := 0
		for _, c := range first {
			assert.GreaterOrEqual(t, c, 0, "total %d", total)
			sum += c
		}
		assert.Equal(t, total, sum, "total %d", total)
	}
}

func TestBehaviorQueueConsumption(t *testing.T) {
	a := &aquarium{
		curFishCount: 500,
		behaviors: []loader.Behavior{
			{Frame: 0, Op: "+", Count: 10},
			{Frame: 2, Op: "-", Count: 5},
		},
	}

	// The head entry has no delay and applies immediately.
	a.stepBehaviors()
	assert.Equal(t, 510, a.curFishCount)
	require.Len(t, a.behaviors, 1)
	assert.Equal(t, 2, a.behaviors[0].Frame)

	// Two frames tick the remaining entry's delay down.
	a.stepBehaviors()
	assert.Equal(t, 510, a.curFishCount)
	assert.Equal(t, 1, a.behaviors[0].Frame)
	a.stepBehaviors()
	assert.Equal(t, 510, a.curFishCount)
	assert.Equal(t, 0, a.behaviors[0].Frame)

	// At delay zero the entry applies and the queue empties.
	a.stepBehaviors()
	assert.Equal(t, 505, a.curFishCount)
	assert.Empty(t, a.behaviors)
}

func TestBehaviorQueueClampsAtZero(t *testing.T) {
	a := &aquarium{
		curFishCount: 3,
		behaviors:    []loader.Behavior{{Frame: 0, Op: "-", Count: 10}},
	}
	a.stepBehaviors()
	assert.Equal(t, 0, a.curFishCount)
}

func TestZeroFishCountDoesNotCrash(t *testing.T) {
	fish := newTestFish(t, model.FishTable[0])
	a := &aquarium{
		scene:        &fishOnlyScene{fish: []model.FishModel{fish}},
		curFishCount: 0,
	}

	require.NoError(t, a.applyFishCount())
	assert.Equal(t, 0, fish.Pool().Capacity())

	// No instances to simulate; the update loop must be a no-op.
	a.updateFish()
	assert.Equal(t, 0, fish.InstanceCount())
}

func TestApplyFishCountGrowsPoolsOnly(t *testing.T) {
	fish := newTestFish(t, model.FishTable[0])
	a := &aquarium{
		scene:        &fishOnlyScene{fish: []model.FishModel{fish}},
		curFishCount: 50,
	}

	require.NoError(t, a.applyFishCount())
	grown := fish.Pool().Capacity()
	assert.GreaterOrEqual(t, grown, 38)

	// Shrinking the population must not shrink the allocation.
	a.curFishCount = 10
	require.NoError(t, a.applyFishCount())
	assert.Equal(t, grown, fish.Pool().Capacity())
	assert.Equal(t, 6, fish.Pool().Count())
}

func TestUpdateFishIsDeterministic(t *testing.T) {
	run := func() [8]float32 {
		fish := newTestFish(t, model.FishTable[0])
		a := &aquarium{
			scene:        &fishOnlyScene{fish: []model.FishModel{fish}},
			curFishCount: 12,
			clock:        1.234,
		}
		require.NoError(t, a.applyFishCount())
		a.random.Reset()
		a.updateFish()

		inst := fish.Pool().Instance(0)
		return [8]float32{
			inst.WorldPosition[0], inst.WorldPosition[1], inst.WorldPosition[2],
			inst.NextPosition[0], inst.NextPosition[1], inst.NextPosition[2],
			inst.Scale, inst.Time,
		}
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	// Scale is 1 plus a positive random fraction.
	assert.GreaterOrEqual(t, first[6], float32(1))
	assert.Less(t, first[6], float32(2))
}
