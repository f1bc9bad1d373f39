package renderer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
	"github.com/reef-gfx/aquarium/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	gpuPreference      GPUPreference
	pendingPresentMode *PresentMode
	pendingMSAA        *MSAASampleCount
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines, allowing for easy retrieval and management of these resources.
// The Renderer also implements a backend which allows for multiple backend API implementations to exist.
//
// Renderer additionally satisfies instance_pool.Device, so an instance pool
// can allocate its uniform and staging storage directly against it.
type Renderer interface {
	instance_pool.Device

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// render pipeline objects via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SetPipeline adds or updates a Pipeline in the cache with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to add or update in the cache
	//   - p: the Pipeline to add or update in the cache
	SetPipeline(key string, p pipeline.Pipeline)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// InstanceBlockLayout returns the bind group layout for a single instance
	// uniform block, in its static or dynamic-offset variant. Pipelines that
	// draw pool instances include this layout in their bind group layouts.
	//
	// Parameters:
	//   - dynamic: true for the dynamic-offset variant
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	//   - error: an error if layout creation fails
	InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error)

	// InitMeshBuffers creates one GPU vertex buffer per attribute stream plus an index
	// buffer from raw byte data, and stores them on the given BindGroupProvider for
	// later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - attributes: raw vertex data per attribute stream, in vertex slot order
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//   - indexFormat: the element width of indexData
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores
	// them on the given BindGroupProvider. Texture and sampler bindings are resolved from the
	// supplied shared maps rather than owned by the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - textureViews: shared texture views keyed by binding index (nil safe)
	//   - samplers: shared samplers keyed by binding index (nil safe)
	//   - bufferSizes: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error

	// CreateTexture2D creates a 2D texture with a full mip chain from staging data.
	// The returned Texture is shared; callers are responsible for releasing it when
	// no model references it any longer.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - stagingData: the pixel data, dimensions, and mip chain for the texture
	//
	// Returns:
	//   - *Texture: the created texture and its default view
	//   - error: an error if texture creation fails
	CreateTexture2D(label string, stagingData common.TextureStagingData) (*Texture, error)

	// CreateCubeMap creates a cube texture from six face stagings ordered
	// +X, -X, +Y, -Y, +Z, -Z.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - faces: staging data for the six cube faces
	//
	// Returns:
	//   - *Texture: the created texture and its cube view
	//   - error: an error if texture creation fails
	CreateCubeMap(label string, faces [6]common.TextureStagingData) (*Texture, error)

	// CreateSampler creates a GPU sampler from the given configuration.
	//
	// Parameters:
	//   - label: debug label for the sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: an error if sampler creation fails
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame after all DrawCall invocations within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall encodes a single instanced draw command within the current render pass.
	// Multiple DrawCall invocations can be made between BeginFrame and EndFrame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - groups: the bind groups to set on the render pass, in group index order
	//
	// Returns:
	//   - error: an error if the pipeline is not found
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, groups []BoundGroup) error

	// DrawInstancePool encodes one draw per pool instance within the current render
	// pass. The pipeline, shared groups, and mesh buffers are set once; the pool's
	// per-instance bind group is then rebound at perSlot before each draw. In
	// dynamic-offset mode the rebind supplies a new dynamic offset rather than a
	// different group.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - groups: the shared bind groups to set, in group index order
	//   - perSlot: the group index for the per-instance bind group
	//   - pool: the instance pool providing per-instance groups and offsets
	//   - base: the first pool instance to draw
	//   - count: the number of pool instances to draw
	//
	// Returns:
	//   - error: an error if the pipeline is not found
	DrawInstancePool(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, groups []BoundGroup, perSlot uint32, pool *instance_pool.Pool, base, count int) error

	// AwaitUpload drives a pool's staged upload to completion: it retries
	// FlushUpload while the staging map is still pending, polling the device
	// between attempts. A frame's instance data is guaranteed enqueued when
	// this returns nil.
	//
	// Parameters:
	//   - pool: the instance pool whose upload to flush
	//
	// Returns:
	//   - error: an error if the upload could not be flushed
	AwaitUpload(pool *instance_pool.Pool) error

	// EndFrame ends the current render pass and submits any pending upload commands
	// followed by the frame's command buffer in a single queue submission.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	// Must be called after BeginFrame and all DrawCall invocations within a single frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window.
// The window supplies the platform-specific surface descriptor for WebGPU surface creation.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window whose surface the renderer draws to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. gpuPreference) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAAOff // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.gpuPreference, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return err
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) SetPipeline(key string, p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelineCache[key] = p
}

func (r *renderer) InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error) {
	return r.backend.InstanceBlockLayout(dynamic)
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error {
	return r.backend.InitMeshBuffers(provider, attributes, indexData, indexCount, indexFormat)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, textureViews, samplers, bufferSizes)
}

func (r *renderer) CreateTexture2D(label string, stagingData common.TextureStagingData) (*Texture, error) {
	return r.backend.CreateTexture2D(label, stagingData)
}

func (r *renderer) CreateCubeMap(label string, faces [6]common.TextureStagingData) (*Texture, error) {
	return r.backend.CreateCubeMap(label, faces)
}

func (r *renderer) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	return r.backend.CreateSampler(label, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return r.backend.CreateUniformBuffer(label, size)
}

func (r *renderer) CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error) {
	return r.backend.CreateStagingBuffer(label, size)
}

func (r *renderer) CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error) {
	return r.backend.CreateInstanceBindGroup(label, buf, offset, size, dynamic)
}

func (r *renderer) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	return r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error {
	return r.backend.MapWriteAsync(buf, size, callback)
}

func (r *renderer) UnmapBuffer(buf *wgpu.Buffer) error {
	return r.backend.UnmapBuffer(buf)
}

func (r *renderer) EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error {
	return r.backend.EnqueueCopy(src, dst, size)
}

func (r *renderer) DestroyBuffer(buf *wgpu.Buffer) {
	r.backend.DestroyBuffer(buf)
}

func (r *renderer) DestroyBindGroup(bg *wgpu.BindGroup) {
	r.backend.DestroyBindGroup(bg)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, groups []BoundGroup) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	r.backend.DrawCall(p, meshProvider, instanceCount, groups)
	return nil
}

func (r *renderer) DrawInstancePool(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, groups []BoundGroup, perSlot uint32, pool *instance_pool.Pool, base, count int) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	r.backend.DrawInstanceSeries(p, meshProvider, groups, perSlot, pool.BindGroupForInstance, base, count)
	return nil
}

func (r *renderer) AwaitUpload(pool *instance_pool.Pool) error {
	for {
		err := pool.FlushUpload()
		if err == nil {
			return nil
		}
		if !errors.Is(err, instance_pool.ErrMapPending) {
			return err
		}
		// The staging buffer from the previous frame has not been remapped
		// yet. Poll the device to drive the map callback and back off briefly
		// rather than spinning hot.
		r.backend.Poll(false)
		time.Sleep(100 * time.Microsecond)
	}
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}
