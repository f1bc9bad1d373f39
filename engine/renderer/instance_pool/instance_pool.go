// package instance_pool manages the per-fish uniform block backing store. A
// single GPU buffer holds one 256-byte block per fish so each block can be
// bound at a dynamic offset; the pool grows the buffer when the population
// exceeds what was last allocated and never shrinks it.
package instance_pool

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/common"
)

// blockSize is the stride of one instance block in the pool buffer. The value
// satisfies the minimum dynamic-offset alignment required for uniform buffers.
const blockSize = 256

// ErrMapPending is returned by FlushUpload when the staging buffer has not
// finished mapping yet. Callers should tick the device and retry.
var ErrMapPending = errors.New("instance_pool: staging buffer map still pending")

// FishPer is the per-instance uniform block consumed by the fish vertex
// shader. The trailing padding rounds the struct up to the 256-byte block
// stride.
type FishPer struct {
	WorldPosition [3]float32
	Scale         float32
	NextPosition  [3]float32
	Time          float32
	Padding       [56]float32
}

// Mode selects how instance blocks are exposed to draw calls.
type Mode int

const (
	// ModePerInstanceGroups creates one bind group per instance, each viewing
	// a single block of the pool buffer at a fixed offset.
	ModePerInstanceGroups Mode = iota

	// ModeDynamicOffsets creates a single bind group over the whole buffer
	// and selects the block per draw with a dynamic offset.
	ModeDynamicOffsets
)

// Device is the narrow GPU capability surface the pool depends on. The
// renderer backend implements it against a real WebGPU device; tests provide
// an in-memory fake.
type Device interface {
	// CreateUniformBuffer allocates a buffer usable as a uniform binding and
	// as the destination of buffer-to-buffer copies.
	//
	// Parameters:
	//   - label: debug label
	//   - size: buffer size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the allocated buffer
	//   - error: error if allocation fails
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// CreateStagingBuffer allocates a map-writable copy-source buffer that is
	// mapped at creation, returning the initial mapped range.
	//
	// Parameters:
	//   - label: debug label
	//   - size: buffer size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the allocated buffer
	//   - []byte: the mapped range, valid until the buffer is unmapped
	//   - error: error if allocation fails
	CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error)

	// CreateInstanceBindGroup builds a bind group viewing a range of the pool
	// buffer with the per-instance uniform layout.
	//
	// Parameters:
	//   - label: debug label
	//   - buf: the pool buffer
	//   - offset: byte offset of the viewed range
	//   - size: byte length of the viewed range
	//   - dynamic: true to build against the dynamic-offset layout
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: error if creation fails
	CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error)

	// WriteBuffer schedules an immediate write of data into buf at offset.
	//
	// Parameters:
	//   - buf: destination buffer
	//   - offset: destination byte offset
	//   - data: bytes to write
	//
	// Returns:
	//   - error: error if the write cannot be scheduled
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// MapWriteAsync requests a write mapping of buf. The callback fires
	// during device polling with the mapped range, or with an error if the
	// mapping failed.
	//
	// Parameters:
	//   - buf: buffer to map
	//   - size: byte length to map from offset 0
	//   - callback: receives the mapped range or an error
	//
	// Returns:
	//   - error: error if the request cannot be issued
	MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error

	// UnmapBuffer unmaps a previously mapped buffer, invalidating any view of
	// its mapped range.
	//
	// Parameters:
	//   - buf: buffer to unmap
	//
	// Returns:
	//   - error: error if the unmap fails
	UnmapBuffer(buf *wgpu.Buffer) error

	// EnqueueCopy records a buffer-to-buffer copy into the pending command
	// list. Pending copies are submitted ahead of the frame's render work, in
	// the order they were enqueued.
	//
	// Parameters:
	//   - src: copy source
	//   - dst: copy destination
	//   - size: byte length to copy
	//
	// Returns:
	//   - error: error if the copy cannot be recorded
	EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error

	// DestroyBuffer releases a buffer created by this device.
	DestroyBuffer(buf *wgpu.Buffer)

	// DestroyBindGroup releases a bind group created by this device.
	DestroyBindGroup(bg *wgpu.BindGroup)
}

// Pool owns the fish instance blocks: the CPU-side array, the GPU uniform
// buffer, the optional staging buffer for mapped uploads, and the bind groups
// that expose blocks to draw calls.
//
// Capacity only ever grows. Lowering the population reuses the existing
// allocation; raising it past the last allocated capacity rebuilds the buffer
// and bind groups at the new size.
type Pool struct {
	device Device
	mode   Mode
	async  bool

	instances []FishPer
	capacity  int
	count     int

	uniformBuffer *wgpu.Buffer
	stagingBuffer *wgpu.Buffer

	groups       []*wgpu.BindGroup
	dynamicGroup *wgpu.BindGroup

	mapped    []byte
	mapErr    error
	mapActive bool
}

// NewPool creates an empty pool. No GPU resources exist until the first
// Reallocate with a non-zero count.
//
// Parameters:
//   - device: GPU capability surface
//   - options: a variadic list of options to configure the pool
//
// Returns:
//   - *Pool: the newly created pool
func NewPool(device Device, options ...PoolOption) *Pool {
	p := &Pool{device: device}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Mode returns the bind group exposure mode.
func (p *Pool) Mode() Mode {
	return p.mode
}

// AsyncUpload reports whether uploads go through the mapped staging path.
func (p *Pool) AsyncUpload() bool {
	return p.async
}

// Capacity returns the number of instance blocks currently allocated on the
// GPU. It never decreases.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Count returns the active instance count set by the last Reallocate.
func (p *Pool) Count() int {
	return p.count
}

// Instance returns a pointer into the CPU-side block array for direct field
// updates. The data reaches the GPU on the next UpdateAll or FlushUpload.
//
// Parameters:
//   - i: instance index, 0 <= i < Capacity()
//
// Returns:
//   - *FishPer: the instance block
func (p *Pool) Instance(i int) *FishPer {
	return &p.instances[i]
}

// Reallocate sets the active instance count, growing the GPU allocation when
// count exceeds the last allocated capacity. Shrinking never releases
// resources: the existing buffer and bind groups are reused and the surplus
// blocks simply go unreferenced.
//
// Parameters:
//   - count: new active instance count
//
// Returns:
//   - error: error if GPU resource creation fails
func (p *Pool) Reallocate(count int) error {
	if count < 0 {
		return fmt.Errorf("instance_pool: negative instance count %d", count)
	}
	if count <= p.capacity {
		p.count = count
		return nil
	}

	p.releaseGPU()

	bufSize := uint64(count) * blockSize
	uniform, err := p.device.CreateUniformBuffer("fish instance pool", bufSize)
	if err != nil {
		return fmt.Errorf("failed to create instance pool buffer: %w", err)
	}
	p.uniformBuffer = uniform

	if p.async {
		staging, view, err := p.device.CreateStagingBuffer("fish instance staging", bufSize)
		if err != nil {
			return fmt.Errorf("failed to create instance staging buffer: %w", err)
		}
		p.stagingBuffer = staging
		p.mapped = view
		p.mapActive = true
		p.mapErr = nil
	}

	switch p.mode {
	case ModeDynamicOffsets:
		group, err := p.device.CreateInstanceBindGroup("fish instances", uniform, 0, blockSize, true)
		if err != nil {
			return fmt.Errorf("failed to create instance bind group: %w", err)
		}
		p.dynamicGroup = group
	case ModePerInstanceGroups:
		p.groups = make([]*wgpu.BindGroup, count)
		for i := range p.groups {
			group, err := p.device.CreateInstanceBindGroup(
				fmt.Sprintf("fish instance %d", i), uniform, uint64(i)*blockSize, blockSize, false)
			if err != nil {
				return fmt.Errorf("failed to create bind group for instance %d: %w", i, err)
			}
			p.groups[i] = group
		}
	}

	grown := make([]FishPer, count)
	copy(grown, p.instances)
	p.instances = grown
	p.capacity = count
	p.count = count
	return nil
}

// BindGroupForInstance returns the bind group and dynamic offsets to bind for
// one instance. In per-instance mode the offsets slice is nil; in dynamic
// mode the same group is returned for every instance with the block offset.
//
// Parameters:
//   - i: instance index, 0 <= i < Capacity()
//
// Returns:
//   - *wgpu.BindGroup: the bind group to set
//   - []uint32: dynamic offsets to pass with the bind, or nil
func (p *Pool) BindGroupForInstance(i int) (*wgpu.BindGroup, []uint32) {
	if p.mode == ModeDynamicOffsets {
		return p.dynamicGroup, []uint32{uint32(i) * blockSize}
	}
	return p.groups[i], nil
}

// UpdateAll pushes the whole CPU-side block array to the GPU through the
// immediate write path. Only valid for pools without async upload.
//
// Returns:
//   - error: error if the write fails
func (p *Pool) UpdateAll() error {
	if p.capacity == 0 {
		return nil
	}
	if err := p.device.WriteBuffer(p.uniformBuffer, 0, common.SliceToBytes(p.instances)); err != nil {
		return fmt.Errorf("failed to write instance pool: %w", err)
	}
	return nil
}

// UploadReady reports whether the staging buffer is mapped and FlushUpload
// can proceed without returning ErrMapPending.
func (p *Pool) UploadReady() bool {
	return p.mapActive && p.mapped != nil
}

// FlushUpload copies the CPU-side blocks into the mapped staging range,
// unmaps it, enqueues the staging-to-uniform copy, and requests the mapping
// for the next frame. Returns ErrMapPending when the previous map request has
// not completed; the caller polls the device and retries.
//
// Returns:
//   - error: ErrMapPending when the mapping is outstanding, or any device error
func (p *Pool) FlushUpload() error {
	if p.capacity == 0 {
		return nil
	}
	if p.mapErr != nil {
		return fmt.Errorf("instance staging map failed: %w", p.mapErr)
	}
	if !p.UploadReady() {
		return ErrMapPending
	}

	copy(p.mapped, common.SliceToBytes(p.instances))
	p.mapped = nil
	p.mapActive = false
	if err := p.device.UnmapBuffer(p.stagingBuffer); err != nil {
		return fmt.Errorf("failed to unmap instance staging buffer: %w", err)
	}

	size := uint64(p.capacity) * blockSize
	if err := p.device.EnqueueCopy(p.stagingBuffer, p.uniformBuffer, size); err != nil {
		return fmt.Errorf("failed to enqueue instance copy: %w", err)
	}

	// Reallocate can destroy this staging buffer while the map is still
	// outstanding; a completion for a replaced buffer must not touch the
	// rebuilt pool's state.
	staging := p.stagingBuffer
	err := p.device.MapWriteAsync(staging, size, func(view []byte, err error) {
		if p.stagingBuffer != staging {
			return
		}
		p.mapped = view
		p.mapErr = err
		p.mapActive = err == nil
	})
	if err != nil {
		return fmt.Errorf("failed to request instance staging map: %w", err)
	}
	return nil
}

// Release destroys all GPU resources and clears the CPU-side state.
func (p *Pool) Release() {
	p.releaseGPU()
	p.instances = nil
	p.capacity = 0
	p.count = 0
}

func (p *Pool) releaseGPU() {
	for i, g := range p.groups {
		if g != nil {
			p.device.DestroyBindGroup(g)
			p.groups[i] = nil
		}
	}
	p.groups = nil
	if p.dynamicGroup != nil {
		p.device.DestroyBindGroup(p.dynamicGroup)
		p.dynamicGroup = nil
	}
	if p.stagingBuffer != nil {
		p.device.DestroyBuffer(p.stagingBuffer)
		p.stagingBuffer = nil
	}
	if p.uniformBuffer != nil {
		p.device.DestroyBuffer(p.uniformBuffer)
		p.uniformBuffer = nil
	}
	p.mapped = nil
	p.mapActive = false
	p.mapErr = nil
}
