package instance_pool

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice records resource lifecycle calls and defers map callbacks until
// Tick, mimicking a device that completes mappings during polling.
type fakeDevice struct {
	uniformCreates int
	stagingCreates int
	groupCreates   int

	buffersDestroyed int
	groupsDestroyed  int

	writes []fakeWrite
	copies []fakeCopy

	stagingData map[*wgpu.Buffer][]byte
	destroyed   map[*wgpu.Buffer]bool
	mapQueue    []func()
	unmapped    int
}

type fakeWrite struct {
	buf    *wgpu.Buffer
	offset uint64
	data   []byte
}

type fakeCopy struct {
	src, dst *wgpu.Buffer
	size     uint64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		stagingData: make(map[*wgpu.Buffer][]byte),
		destroyed:   make(map[*wgpu.Buffer]bool),
	}
}

func (d *fakeDevice) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	d.uniformCreates++
	return new(wgpu.Buffer), nil
}

func (d *fakeDevice) CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error) {
	d.stagingCreates++
	buf := new(wgpu.Buffer)
	view := make([]byte, size)
	d.stagingData[buf] = view
	return buf, view, nil
}

func (d *fakeDevice) CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error) {
	d.groupCreates++
	return new(wgpu.BindGroup), nil
}

func (d *fakeDevice) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	d.writes = append(d.writes, fakeWrite{buf: buf, offset: offset, data: cp})
	return nil
}

func (d *fakeDevice) MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error {
	d.mapQueue = append(d.mapQueue, func() {
		if d.destroyed[buf] {
			callback(nil, errors.New("buffer destroyed before mapping completed"))
			return
		}
		callback(d.stagingData[buf], nil)
	})
	return nil
}

func (d *fakeDevice) UnmapBuffer(buf *wgpu.Buffer) error {
	d.unmapped++
	return nil
}

func (d *fakeDevice) EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error {
	d.copies = append(d.copies, fakeCopy{src: src, dst: dst, size: size})
	return nil
}

func (d *fakeDevice) DestroyBuffer(buf *wgpu.Buffer) {
	d.buffersDestroyed++
	d.destroyed[buf] = true
}

func (d *fakeDevice) DestroyBindGroup(bg *wgpu.BindGroup) {
	d.groupsDestroyed++
}

// Tick delivers all outstanding map callbacks.
func (d *fakeDevice) Tick() {
	pending := d.mapQueue
	d.mapQueue = nil
	for _, deliver := range pending {
		deliver()
	}
}

func TestFishPerBlockSize(t *testing.T) {
	assert.Equal(t, uintptr(blockSize), unsafe.Sizeof(FishPer{}))
}

func TestReallocateGrowsOnlyPastCapacity(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModePerInstanceGroups))

	require.NoError(t, pool.Reallocate(500))
	assert.Equal(t, 500, pool.Capacity())
	assert.Equal(t, 500, pool.Count())
	assert.Equal(t, 1, dev.uniformCreates)
	assert.Equal(t, 500, dev.groupCreates)

	// Shrinking reuses the allocation.
	require.NoError(t, pool.Reallocate(300))
	assert.Equal(t, 500, pool.Capacity())
	assert.Equal(t, 300, pool.Count())
	assert.Equal(t, 1, dev.uniformCreates)

	// Growing back within the old capacity still reuses it.
	require.NoError(t, pool.Reallocate(400))
	assert.Equal(t, 500, pool.Capacity())
	assert.Equal(t, 1, dev.uniformCreates)
	assert.Zero(t, dev.buffersDestroyed)

	// One past capacity forces a rebuild.
	require.NoError(t, pool.Reallocate(501))
	assert.Equal(t, 501, pool.Capacity())
	assert.Equal(t, 2, dev.uniformCreates)
	assert.Equal(t, 1, dev.buffersDestroyed)
	assert.Equal(t, 500, dev.groupsDestroyed)
	assert.Equal(t, 500+501, dev.groupCreates)
}

func TestReallocatePreservesInstanceData(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModeDynamicOffsets))

	require.NoError(t, pool.Reallocate(10))
	pool.Instance(3).Scale = 7.5

	require.NoError(t, pool.Reallocate(20))
	assert.Equal(t, float32(7.5), pool.Instance(3).Scale)
}

func TestBindGroupModeInvariant(t *testing.T) {
	dev := newFakeDevice()
	perPool := NewPool(dev, WithMode(ModePerInstanceGroups))
	require.NoError(t, perPool.Reallocate(4))

	seen := make(map[*wgpu.BindGroup]bool)
	for i := 0; i < 4; i++ {
		group, offsets := perPool.BindGroupForInstance(i)
		require.NotNil(t, group)
		assert.Nil(t, offsets)
		assert.False(t, seen[group], "instance %d reused a bind group", i)
		seen[group] = true
	}

	dynPool := NewPool(dev, WithMode(ModeDynamicOffsets))
	require.NoError(t, dynPool.Reallocate(4))

	first, _ := dynPool.BindGroupForInstance(0)
	for i := 0; i < 4; i++ {
		group, offsets := dynPool.BindGroupForInstance(i)
		assert.Same(t, first, group)
		require.Len(t, offsets, 1)
		assert.Equal(t, uint32(i*blockSize), offsets[0])
	}
}

func TestUpdateAllWritesWholeAllocation(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModeDynamicOffsets))
	require.NoError(t, pool.Reallocate(3))

	pool.Instance(2).Time = 1.25
	require.NoError(t, pool.UpdateAll())

	require.Len(t, dev.writes, 1)
	assert.Equal(t, 3*blockSize, len(dev.writes[0].data))
}

func TestFlushUploadOrdering(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModeDynamicOffsets), WithAsyncUpload(true))
	require.NoError(t, pool.Reallocate(2))

	// Staging starts mapped at creation, so the first flush goes straight
	// through: copy into staging, unmap, enqueue, remap.
	pool.Instance(0).Scale = 2.0
	require.NoError(t, pool.FlushUpload())
	assert.Equal(t, 1, dev.unmapped)
	require.Len(t, dev.copies, 1)
	assert.Equal(t, uint64(2*blockSize), dev.copies[0].size)

	// The remap has not been delivered, so the next flush must report the
	// pending map without enqueueing anything.
	err := pool.FlushUpload()
	require.ErrorIs(t, err, ErrMapPending)
	assert.Len(t, dev.copies, 1)
	assert.Equal(t, 1, dev.unmapped)

	// Delivering the map callback unblocks the flush, and the staging range
	// receives the values present at flush time.
	pool.Instance(1).Time = 9.0
	dev.Tick()
	require.True(t, pool.UploadReady())
	require.NoError(t, pool.FlushUpload())
	assert.Len(t, dev.copies, 2)

	staging := dev.stagingData[dev.copies[1].src]
	require.NotNil(t, staging)
	// Time sits at byte offset 28 within the second block.
	timeBits := uint32(staging[blockSize+28]) | uint32(staging[blockSize+29])<<8 |
		uint32(staging[blockSize+30])<<16 | uint32(staging[blockSize+31])<<24
	assert.Equal(t, uint32(0x41100000), timeBits)
}

func TestFlushUploadIgnoresStaleMapCompletions(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModeDynamicOffsets), WithAsyncUpload(true))
	require.NoError(t, pool.Reallocate(1))

	// Consume the creation mapping and request the next one.
	require.NoError(t, pool.FlushUpload())

	// Grow while that map is outstanding: the old staging buffer is
	// destroyed and a fresh mapped one takes its place.
	require.NoError(t, pool.Reallocate(2))
	dev.Tick()

	// The destroyed buffer's failed completion belongs to the replaced
	// allocation and must not poison the rebuilt pool.
	require.NoError(t, pool.FlushUpload())

	// The current staging buffer's completions still land.
	dev.Tick()
	require.True(t, pool.UploadReady())
	require.NoError(t, pool.FlushUpload())
}

func TestZeroCountPoolIsInert(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModePerInstanceGroups), WithAsyncUpload(true))

	require.NoError(t, pool.Reallocate(0))
	assert.Zero(t, pool.Capacity())
	assert.Zero(t, dev.uniformCreates)
	assert.Zero(t, dev.stagingCreates)

	assert.NoError(t, pool.UpdateAll())
	assert.NoError(t, pool.FlushUpload())
	assert.Empty(t, dev.copies)
}

func TestReallocateRejectsNegativeCount(t *testing.T) {
	pool := NewPool(newFakeDevice())
	assert.Error(t, pool.Reallocate(-1))
}

func TestFlushUploadPropagatesMapError(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModeDynamicOffsets), WithAsyncUpload(true))
	require.NoError(t, pool.Reallocate(1))
	require.NoError(t, pool.FlushUpload())

	// Simulate the device failing the remap request.
	pending := dev.mapQueue
	dev.mapQueue = nil
	_ = pending
	pool.mapErr = errors.New("device lost")
	err := pool.FlushUpload()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMapPending)
}

func TestReleaseDestroysEverything(t *testing.T) {
	dev := newFakeDevice()
	pool := NewPool(dev, WithMode(ModePerInstanceGroups), WithAsyncUpload(true))
	require.NoError(t, pool.Reallocate(8))

	pool.Release()
	assert.Equal(t, 2, dev.buffersDestroyed)
	assert.Equal(t, 8, dev.groupsDestroyed)
	assert.Zero(t, pool.Capacity())
	assert.Zero(t, pool.Count())
}
