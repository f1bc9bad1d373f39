package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/pipeline"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Last configured surface size, used to reconfigure a stale surface
	// when a frame acquire fails after a resize race.
	surfaceWidth  int
	surfaceHeight int

	// Instance block bind group layouts, created on first use. The static
	// layout views one block; the dynamic layout views one block at a
	// caller-supplied dynamic offset.
	instanceLayout        *wgpu.BindGroupLayout
	instanceDynamicLayout *wgpu.BindGroupLayout

	// Pending upload command buffers. Filled by EnqueueCopy between frames
	// and drained ahead of the frame's render commands on submit, preserving
	// enqueue order.
	pendingCommands []*wgpu.CommandBuffer

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates a render pipeline from the pipeline's
	// WGSL sources, vertex layouts, and bind group layouts, then stores the
	// compiled pipeline on the Pipeline via SetRenderPipeline.
	//
	// Parameters:
	//   - p: the pipeline object containing the source code and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers creates one GPU vertex buffer per attribute stream plus
	// an index buffer, and stores them on the given BindGroupProvider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - attributes: raw vertex data for each attribute stream, in slot order
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices represented in indexData
	//   - indexFormat: element width of indexData
	//
	// Returns:
	//   - error: an error if the buffers could not be created or initialized, otherwise nil
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error

	// InitBindGroup creates GPU buffers and a bind group based on a layout
	// descriptor and stores them on the provider. Texture and sampler entries
	// are resolved from the supplied maps since those resources are shared
	// and not owned by the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the storage for the bind group
	//   - descriptor: the BindGroupLayoutDescriptor describing the layout of the bind group
	//   - textureViews: shared texture views keyed by binding index (nil safe)
	//   - samplers: shared samplers keyed by binding index (nil safe)
	//   - bufferSizes: buffer sizes keyed by binding index, overriding MinBindingSize (nil safe)
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error

	// CreateTexture2D creates a 2D texture from staging data, uploading every
	// mip level.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: pixel data with mip chain
	//
	// Returns:
	//   - *Texture: the created texture and its default view
	//   - error: error if creation or upload fails
	CreateTexture2D(label string, stagingData common.TextureStagingData) (*Texture, error)

	// CreateCubeMap creates a cube texture from six face stagings ordered
	// +X, -X, +Y, -Y, +Z, -Z. All faces must share dimensions.
	//
	// Parameters:
	//   - label: debug label
	//   - faces: staging data for the six faces
	//
	// Returns:
	//   - *Texture: the created texture and its cube view
	//   - error: error if creation or upload fails
	CreateCubeMap(label string, faces [6]common.TextureStagingData) (*Texture, error)

	// CreateSampler creates a GPU sampler from the provided configuration.
	//
	// Parameters:
	//   - label: debug label
	//   - samplerStagingData: the SamplerStagingData containing the configuration for creating the sampler
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: an error if the sampler could not be created, otherwise nil
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateUniformBuffer allocates a copy-destination uniform buffer.
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// CreateStagingBuffer allocates a map-writable copy-source buffer mapped
	// at creation, returning the initial mapped range.
	CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error)

	// CreateInstanceBindGroup builds a bind group viewing a range of an
	// instance pool buffer with the per-instance uniform layout.
	CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error)

	// InstanceBlockLayout returns the bind group layout for one instance
	// block, either the static or dynamic-offset variant. Created on first
	// use.
	//
	// Parameters:
	//   - dynamic: true for the dynamic-offset variant
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	//   - error: error if creation fails
	InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error)

	// WriteBuffer schedules an immediate write of data into buf at offset.
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// MapWriteAsync requests a write mapping of buf; the callback fires
	// during polling with the mapped range or an error.
	MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error

	// UnmapBuffer unmaps a previously mapped buffer.
	UnmapBuffer(buf *wgpu.Buffer) error

	// EnqueueCopy records a buffer-to-buffer copy into the pending command
	// list, submitted ahead of the next frame's render commands.
	EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error

	// DestroyBuffer releases a buffer.
	DestroyBuffer(buf *wgpu.Buffer)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(bg *wgpu.BindGroup)

	// Poll processes outstanding device work, delivering map callbacks.
	//
	// Parameters:
	//   - wait: true to block until the device queue is empty
	Poll(wait bool)

	// BeginFrame acquires the next swapchain texture, creates a command encoder, and begins
	// the main render pass. Must be paired with EndFrame after all DrawCall invocations.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall encodes a single instanced draw command within the current render pass started by BeginFrame.
	// Multiple DrawCall invocations can be made between BeginFrame and EndFrame.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the render pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - groups: the bind groups to set, in group index order
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, groups []BoundGroup)

	// DrawInstanceSeries encodes one draw per pool instance: the pipeline,
	// shared groups, and mesh buffers are set once, then for each instance
	// the pool's bind group is rebound at perSlot and the mesh is drawn.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the render pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - groups: the shared bind groups to set, in group index order
	//   - perSlot: the group index for the per-instance bind group
	//   - perGroup: yields the bind group and offsets for each instance
	//   - base: first pool instance index
	//   - count: number of instances to draw
	DrawInstanceSeries(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, groups []BoundGroup, perSlot uint32, perGroup func(i int) (*wgpu.BindGroup, []uint32), base, count int)

	// EndFrame ends the current render pass and submits any pending upload
	// command buffers followed by the frame's command buffer.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	// Must be called after BeginFrame and all DrawCall invocations.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, pref GPUPreference, sampleCount MSAASampleCount) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	opts := wgpu.RequestAdapterOptions{
		CompatibleSurface: w.surface,
	}
	switch pref {
	case GPUPreferenceDiscrete:
		opts.PowerPreference = wgpu.PowerPreferenceHighPerformance
	case GPUPreferenceIntegrated:
		opts.PowerPreference = wgpu.PowerPreferenceLowPower
	case GPUPreferenceFallback:
		opts.ForceFallbackAdapter = true
	}

	a, err := w.instance.RequestAdapter(&opts)
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configureSurfaceLocked(width, height)
}

func (b *wgpuRendererBackendImpl) configureSurfaceLocked(width, height int) {
	b.surfaceWidth = width
	b.surfaceHeight = height

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// Create the MSAA texture that the render pass draws into; the resolved
		// result is written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		// No MSAA — the render pass draws directly to the swapchain view.
		b.msaaTextureView = nil
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// Build the cached render pass descriptor for the main render target.
	// When MSAA is enabled, View is the MSAA texture and ResolveTarget is
	// set per-frame to the swapchain view. When disabled, View is set
	// per-frame to the swapchain view and ResolveTarget remains nil.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.8, B: 1.0, A: 0.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView, // Persistent until resize
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard, // Depth not needed after resolving
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.VertexSource() == "" || p.FragmentSource() == "" {
		return errors.New("both vertex and fragment sources must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.PipelineKey() + " VS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.VertexSource(),
		},
	})
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.PipelineKey() + " FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.FragmentSource(),
		},
	})
	if err != nil {
		return err
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: p.BindGroupLayouts(),
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: p.VertexEntry(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: p.FragmentEntry(),
			Targets: []wgpu.ColorTargetState{
				func() wgpu.ColorTargetState {
					state := wgpu.ColorTargetState{
						Format:    *b.surfaceFormat,
						WriteMask: p.WriteMask(),
					}
					if p.BlendEnabled() {
						state.Blend = p.BlendState()
					}
					return state
				}(),
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: func() *wgpu.DepthStencilState {
			depthCompare := wgpu.CompareFunctionLess
			if !p.DepthTestEnabled() {
				depthCompare = wgpu.CompareFunctionAlways
			}
			return &wgpu.DepthStencilState{
				Format:            wgpu.TextureFormatDepth24Plus,
				DepthWriteEnabled: p.DepthWriteEnabled(),
				DepthCompare:      depthCompare,
				StencilFront: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
				StencilBack: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
			}
		}(),
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)

	return nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, attributes [][]byte, indexData []byte, indexCount int, indexFormat wgpu.IndexFormat) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for slot, data := range attributes {
		if len(data) == 0 {
			return fmt.Errorf("vertex attribute stream %d is empty", slot)
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            fmt.Sprintf("%s Vertex Buffer %d", provider.Label(), slot),
			Size:             uint64(len(data)),
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, data)
		provider.AppendVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            provider.Label() + " Index Buffer",
			Size:             uint64(len(indexData)),
			Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf, indexFormat)
	}

	provider.SetIndexCount(indexCount)

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, textureViews map[int]*wgpu.TextureView, samplers map[int]*wgpu.Sampler, bufferSizes map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		if isTexture {
			tv := textureViews[binding]
			if tv == nil {
				return fmt.Errorf("texture binding %d has no texture view", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		} else if isSampler {
			samp := samplers[binding]
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		} else {
			// Buffer binding — create if not already present
			buf := provider.Buffer(binding)
			if buf == nil {
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizes[binding]; ok {
					bufSize = overrideSize
				}
				created, bufErr := b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: provider.Label() + " Buffer",
					Size:  bufSize,
					Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
				})
				if bufErr != nil {
					return bufErr
				}
				buf = created
				provider.SetBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) CreateTexture2D(label string, stagingData common.TextureStagingData) (*Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mipCount := stagingData.MipLevelCount()
	if mipCount == 0 {
		return nil, fmt.Errorf("texture %q has no staged mip levels", label)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: mipCount,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for level := uint32(0); level < mipCount; level++ {
		w, h := stagingData.MipSize(level)
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: level,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			stagingData.Mips[level],
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  w * 4,
				RowsPerImage: h,
			},
			&wgpu.Extent3D{
				Width:              w,
				Height:             h,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &Texture{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) CreateCubeMap(label string, faces [6]common.TextureStagingData) (*Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	width := faces[0].Width
	height := faces[0].Height
	for i := range faces {
		if faces[i].Width != width || faces[i].Height != height {
			return nil, fmt.Errorf("cube map %q face %d dimensions differ from face 0", label, i)
		}
		if faces[i].MipLevelCount() == 0 {
			return nil, fmt.Errorf("cube map %q face %d has no staged mip levels", label, i)
		}
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 6,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for face := range faces {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(face)},
				Aspect:   wgpu.TextureAspectAll,
			},
			faces[face].Mips[0],
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * 4,
				RowsPerImage: height,
			},
			&wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &Texture{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
	if err != nil {
		return nil, err
	}
	return samp, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuRendererBackendImpl) CreateStagingBuffer(label string, size uint64) (*wgpu.Buffer, []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, nil, err
	}
	view := buf.GetMappedRange(0, uint(size))
	return buf, view, nil
}

func (b *wgpuRendererBackendImpl) InstanceBlockLayout(dynamic bool) (*wgpu.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instanceBlockLayoutLocked(dynamic)
}

func (b *wgpuRendererBackendImpl) instanceBlockLayoutLocked(dynamic bool) (*wgpu.BindGroupLayout, error) {
	if dynamic && b.instanceDynamicLayout != nil {
		return b.instanceDynamicLayout, nil
	}
	if !dynamic && b.instanceLayout != nil {
		return b.instanceLayout, nil
	}

	label := "Instance Block Layout"
	if dynamic {
		label = "Instance Block Layout (dynamic)"
	}
	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: dynamic,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if dynamic {
		b.instanceDynamicLayout = layout
	} else {
		b.instanceLayout = layout
	}
	return layout, nil
}

func (b *wgpuRendererBackendImpl) CreateInstanceBindGroup(label string, buf *wgpu.Buffer, offset, size uint64, dynamic bool) (*wgpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, err := b.instanceBlockLayoutLocked(dynamic)
	if err != nil {
		return nil, err
	}
	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  offset,
				Size:    size,
			},
		},
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) MapWriteAsync(buf *wgpu.Buffer, size uint64, callback func(view []byte, err error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return buf.MapAsync(wgpu.MapModeWrite, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			callback(nil, fmt.Errorf("buffer map failed with status %v", status))
			return
		}
		callback(buf.GetMappedRange(0, uint(size)), nil)
	})
}

func (b *wgpuRendererBackendImpl) UnmapBuffer(buf *wgpu.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf.Unmap()
	return nil
}

func (b *wgpuRendererBackendImpl) EnqueueCopy(src, dst *wgpu.Buffer, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	if err := encoder.CopyBufferToBuffer(src, 0, dst, 0, size); err != nil {
		encoder.Release()
		return err
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	encoder.Release()

	b.pendingCommands = append(b.pendingCommands, commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) DestroyBuffer(buf *wgpu.Buffer) {
	buf.Release()
}

func (b *wgpuRendererBackendImpl) DestroyBindGroup(bg *wgpu.BindGroup) {
	bg.Release()
}

func (b *wgpuRendererBackendImpl) Poll(wait bool) {
	b.device.Poll(wait, nil)
}

// acquireSurfaceTexture fetches the next swapchain texture. The surface can
// go stale between a window resize and the next acquire; on a failed acquire
// the surface is reconfigured and the acquire retried once.
//
// Parameters:
//   - acquire: fetches the current surface texture
//   - reconfigure: reconfigures the surface at its last known size
//
// Returns:
//   - *wgpu.Texture: the acquired surface texture
//   - error: the second acquire's error when the retry also fails
func acquireSurfaceTexture(acquire func() (*wgpu.Texture, error), reconfigure func()) (*wgpu.Texture, error) {
	t, err := acquire()
	if err == nil {
		return t, nil
	}
	reconfigure()
	return acquire()
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Defensive: if a previous frame's surface texture is still held, avoid
	// attempting to acquire another one. This prevents wgpu-native validation
	// errors like "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := acquireSurfaceTexture(
		b.surface.GetCurrentTexture,
		func() { b.configureSurfaceLocked(b.surfaceWidth, b.surfaceHeight) },
	)
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly and ResolveTarget is nil.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	groups []BoundGroup,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.SetPipeline(p.Pipeline())
	for i, g := range groups {
		b.framePass.SetBindGroup(uint32(i), g.Group, g.DynamicOffsets)
	}
	b.setMeshBuffers(meshProvider)
	b.framePass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) DrawInstanceSeries(
	p pipeline.Pipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	groups []BoundGroup,
	perSlot uint32,
	perGroup func(i int) (*wgpu.BindGroup, []uint32),
	base, count int,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count <= 0 {
		return
	}

	b.framePass.SetPipeline(p.Pipeline())
	for i, g := range groups {
		b.framePass.SetBindGroup(uint32(i), g.Group, g.DynamicOffsets)
	}
	b.setMeshBuffers(meshProvider)

	indexCount := uint32(meshProvider.IndexCount())
	for i := 0; i < count; i++ {
		group, offsets := perGroup(base + i)
		b.framePass.SetBindGroup(perSlot, group, offsets)
		b.framePass.DrawIndexed(indexCount, 1, 0, 0, 0)
	}
}

func (b *wgpuRendererBackendImpl) setMeshBuffers(meshProvider bind_group_provider.BindGroupProvider) {
	for slot, buf := range meshProvider.VertexBuffers() {
		b.framePass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	}
	b.framePass.SetIndexBuffer(meshProvider.IndexBuffer(), meshProvider.IndexFormat(), 0, wgpu.WholeSize)
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	// Pending upload copies run ahead of the render commands so the pass
	// reads this frame's instance data.
	commands := append(b.pendingCommands, commandBuffer)
	b.pendingCommands = nil
	b.queue.Submit(commands...)

	for _, cmd := range commands {
		cmd.Release()
	}
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return
	}

	// Present the acquired surface image and release local references.
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}
