package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// GPUPreference selects which adapter class is requested from the system.
type GPUPreference int

const (
	// GPUPreferenceNone lets the system pick any suitable adapter.
	GPUPreferenceNone GPUPreference = iota

	// GPUPreferenceDiscrete requests the high-performance adapter.
	GPUPreferenceDiscrete

	// GPUPreferenceIntegrated requests the low-power adapter.
	GPUPreferenceIntegrated

	// GPUPreferenceFallback forces the CPU/software fallback adapter. Requires
	// a software Vulkan ICD to be installed on the system.
	GPUPreferenceFallback
)

// BoundGroup pairs a bind group with the dynamic offsets to pass when binding
// it on a render pass. DynamicOffsets is nil for groups without dynamic
// bindings.
type BoundGroup struct {
	Group          *wgpu.BindGroup
	DynamicOffsets []uint32
}

// Texture bundles a GPU texture with its default view. Textures are shared
// across models through the engine's texture cache; release them through the
// cache, not per model.
type Texture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// View returns the default view of the texture.
func (t *Texture) View() *wgpu.TextureView {
	return t.view
}

// Release destroys the view and the underlying texture.
func (t *Texture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
