package scene

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/camera"
	"github.com/reef-gfx/aquarium/engine/game_object"
	"github.com/reef-gfx/aquarium/engine/light"
	"github.com/reef-gfx/aquarium/engine/loader"
	"github.com/reef-gfx/aquarium/engine/model"
	"github.com/reef-gfx/aquarium/engine/renderer"
	"github.com/reef-gfx/aquarium/engine/renderer/bind_group_provider"
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
)

// skyboxFaces are the environment cube map face images, ordered
// +X, -X, +Y, -Y, +Z, -Z.
var skyboxFaces = [6]string{
	"GlobeOuter_EM_positive_x.jpg",
	"GlobeOuter_EM_negative_x.jpg",
	"GlobeOuter_EM_positive_y.jpg",
	"GlobeOuter_EM_negative_y.jpg",
	"GlobeOuter_EM_positive_z.jpg",
	"GlobeOuter_EM_negative_z.jpg",
}

// aquariumScene is the implementation of the Scene interface.
type aquariumScene struct {
	renderer renderer.Renderer
	loader   loader.Loader
	lighting light.Light

	poolMode    instance_pool.Mode
	asyncUpload bool

	// drawPerModel flushes every model's uniforms before any draw is issued
	// instead of interleaving update and draw per model.
	drawPerModel bool
	// alphaBlending gates the blend state of the transparent entries. On by
	// default; the benchmark can force it off.
	alphaBlending bool

	// generalProvider holds the group 0 light and fog blocks, written once.
	generalProvider bind_group_provider.BindGroupProvider
	// worldProvider holds the group 1 frame block, rewritten every frame.
	worldProvider bind_group_provider.BindGroupProvider
	frameUniforms model.LightWorldPositionUniform

	sampler  *wgpu.Sampler
	skybox   *renderer.Texture
	textures map[string]*renderer.Texture

	// opaque and blended hold the environment in table order; blended
	// entries draw after the fish so transparency composites correctly.
	opaque  []model.Model
	blended []model.Model
	fish    []model.FishModel

	objects []game_object.GameObject
}

// Scene owns the aquarium content: every model from the scene tables, the
// static placements, the shared texture cache, and the two bind groups every
// pipeline shares. The engine drives it once per frame through
// UpdateGlobalUniforms and Draw.
type Scene interface {
	// Init loads every asset and builds every model. Must be called once
	// before the first frame.
	//
	// Returns:
	//   - error: an error if any asset fails to load or any model fails to build
	Init() error

	// FishModels returns the fish species in table order.
	//
	// Returns:
	//   - []model.FishModel: the fish models
	FishModels() []model.FishModel

	// Models returns every model in draw order.
	//
	// Returns:
	//   - []model.Model: opaque environment, fish, then blended models
	Models() []model.Model

	// UpdateGlobalUniforms writes the frame's camera and light state into the
	// shared group 1 block.
	//
	// Parameters:
	//   - frame: the camera state for this frame
	UpdateGlobalUniforms(frame camera.FrameState)

	// Draw accumulates the static placements and issues every draw call for
	// the frame. The renderer must be inside BeginFrame/EndFrame.
	//
	// Parameters:
	//   - frame: the camera state for this frame
	//   - clock: the scene clock in seconds
	//
	// Returns:
	//   - error: the first draw error encountered
	Draw(frame camera.FrameState, clock float32) error

	// Release frees every model, pool, texture, and bind group the scene owns.
	Release()
}

var _ Scene = &aquariumScene{}

// NewScene creates a Scene over the given renderer and loader with the
// specified options.
//
// Parameters:
//   - r: the renderer to build GPU resources on
//   - l: the asset loader
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the configured scene (not yet initialized)
func NewScene(r renderer.Renderer, l loader.Loader, options ...SceneBuilderOption) Scene {
	s := &aquariumScene{
		renderer:      r,
		loader:        l,
		lighting:      light.NewLight(),
		poolMode:      instance_pool.ModePerInstanceGroups,
		alphaBlending: true,
		textures:      make(map[string]*renderer.Texture),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *aquariumScene) Init() error {
	sampler, err := s.renderer.CreateSampler("scene_sampler", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeRepeat,
		AddressModeV: wgpu.AddressModeRepeat,
		AddressModeW: wgpu.AddressModeRepeat,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		LodMaxClamp:  32,
	})
	if err != nil {
		return fmt.Errorf("scene sampler: %w", err)
	}
	s.sampler = sampler

	faces, err := s.loader.LoadCubeMap(skyboxFaces)
	if err != nil {
		return fmt.Errorf("skybox faces: %w", err)
	}
	skybox, err := s.renderer.CreateCubeMap("skybox", faces)
	if err != nil {
		return fmt.Errorf("skybox texture: %w", err)
	}
	s.skybox = skybox

	if err := s.initSharedGroups(); err != nil {
		return err
	}

	placements, err := s.loader.LoadPlacement()
	if err != nil {
		return err
	}
	placed := make(map[string][][16]float32, len(placements))
	for _, p := range placements {
		placed[p.Name] = append(placed[p.Name], p.WorldMatrices...)
	}

	for _, entry := range model.EnvironmentTable {
		m, err := s.buildModel(entry, nil)
		if err != nil {
			return err
		}
		if entry.Blend {
			s.blended = append(s.blended, m)
		} else {
			s.opaque = append(s.opaque, m)
		}

		matrices := placed[entry.Name]
		if len(matrices) == 0 {
			// Models absent from the placement file get a single copy at
			// the origin. The environment box is placed this way.
			matrices = [][16]float32{{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}}
		}
		for i, world := range matrices {
			s.objects = append(s.objects, game_object.NewGameObject(m,
				game_object.WithWorldMatrix(world),
				game_object.WithSwayPhase(float32(i)),
			))
		}
	}

	for _, entry := range model.FishTable {
		pool := instance_pool.NewPool(s.renderer,
			instance_pool.WithMode(s.poolMode),
			instance_pool.WithAsyncUpload(s.asyncUpload),
		)
		m, err := s.buildModel(entry, pool)
		if err != nil {
			return err
		}
		s.fish = append(s.fish, m.(model.FishModel))
	}

	return nil
}

// initSharedGroups creates the group 0 and group 1 bind groups and uploads
// the run-constant lighting blocks.
func (s *aquariumScene) initSharedGroups() error {
	lightBlock := s.lighting.LightUniforms()
	fogBlock := s.lighting.FogUniforms()

	s.generalProvider = bind_group_provider.NewBindGroupProvider("general")
	err := s.renderer.InitBindGroup(s.generalProvider,
		wgpu.BindGroupLayoutDescriptor{
			Label: "General Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageFragment,
					Buffer: wgpu.BufferBindingLayout{
						Type:           wgpu.BufferBindingTypeUniform,
						MinBindingSize: uint64(unsafe.Sizeof(lightBlock)),
					},
				},
				{
					Binding:    1,
					Visibility: wgpu.ShaderStageFragment,
					Buffer: wgpu.BufferBindingLayout{
						Type:           wgpu.BufferBindingTypeUniform,
						MinBindingSize: uint64(unsafe.Sizeof(fogBlock)),
					},
				},
			},
		}, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("general bind group: %w", err)
	}

	s.worldProvider = bind_group_provider.NewBindGroupProvider("world")
	err = s.renderer.InitBindGroup(s.worldProvider,
		wgpu.BindGroupLayoutDescriptor{
			Label: "World Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
					Buffer: wgpu.BufferBindingLayout{
						Type:           wgpu.BufferBindingTypeUniform,
						MinBindingSize: uint64(unsafe.Sizeof(s.frameUniforms)),
					},
				},
			},
		}, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("world bind group: %w", err)
	}

	s.renderer.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: s.generalProvider, Binding: 0, Data: common.StructToBytes(&lightBlock)},
		{Provider: s.generalProvider, Binding: 1, Data: common.StructToBytes(&fogBlock)},
	})
	return nil
}

// buildModel loads an entry's asset and textures, resolves its program, and
// builds the renderable. pool is non-nil only for fish entries.
func (s *aquariumScene) buildModel(entry model.SceneEntry, pool *instance_pool.Pool) (model.Model, error) {
	asset, err := s.loader.LoadModel(entry.Name)
	if err != nil {
		return nil, err
	}

	views := make(map[string]*wgpu.TextureView, len(asset.Textures)+1)
	for role, file := range asset.Textures {
		tex, err := s.texture(file)
		if err != nil {
			return nil, fmt.Errorf("texture %s for %s: %w", role, entry.Name, err)
		}
		views[role] = tex.View()
	}
	views["skybox"] = s.skybox.View()

	vsID, fsID := loader.SelectProgram(entry, asset.Textures)
	vs, fs, err := s.loader.Program(vsID, fsID)
	if err != nil {
		return nil, fmt.Errorf("program for %s: %w", entry.Name, err)
	}

	var options []model.ModelBuilderOption
	if pool != nil {
		options = append(options, model.WithPool(pool))
	}
	if entry.Blend && !s.alphaBlending {
		options = append(options, model.WithBlend(false))
	}
	m := model.New(entry, asset.Mesh, options...)

	err = m.Init(s.renderer, model.InitConfig{
		GeneralLayout:  s.generalProvider.BindGroupLayout(),
		WorldLayout:    s.worldProvider.BindGroupLayout(),
		VertexSource:   vs,
		FragmentSource: fs,
		Textures:       views,
		Sampler:        s.sampler,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// texture loads an image through the shared cache so assets reusing a file
// share one GPU texture.
func (s *aquariumScene) texture(file string) (*renderer.Texture, error) {
	if tex, ok := s.textures[file]; ok {
		return tex, nil
	}
	staging, err := s.loader.LoadTexture(file)
	if err != nil {
		return nil, err
	}
	tex, err := s.renderer.CreateTexture2D(file, staging)
	if err != nil {
		return nil, err
	}
	s.textures[file] = tex
	return tex, nil
}

func (s *aquariumScene) FishModels() []model.FishModel {
	return s.fish
}

func (s *aquariumScene) Models() []model.Model {
	all := make([]model.Model, 0, len(s.opaque)+len(s.fish)+len(s.blended))
	all = append(all, s.opaque...)
	for _, f := range s.fish {
		all = append(all, f)
	}
	all = append(all, s.blended...)
	return all
}

func (s *aquariumScene) UpdateGlobalUniforms(frame camera.FrameState) {
	s.frameUniforms = model.LightWorldPositionUniform{
		LightWorldPos:  [3]float32(frame.LightWorldPos),
		ViewProjection: [16]float32(frame.ViewProjection),
		ViewInverse:    [16]float32(frame.ViewInverse),
	}
	s.renderer.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: s.worldProvider, Binding: 0, Data: common.StructToBytes(&s.frameUniforms)},
	})
}

func (s *aquariumScene) Draw(frame camera.FrameState, clock float32) error {
	for _, obj := range s.objects {
		obj.PushInstance(frame.ViewProjection, clock)
	}

	shared := []renderer.BoundGroup{
		{Group: s.generalProvider.BindGroup()},
		{Group: s.worldProvider.BindGroup()},
	}

	if s.drawPerModel {
		// Flush every model's uniforms first, then issue all draws.
		for _, m := range s.Models() {
			m.PrepareForDraw(s.renderer)
		}
		if err := s.awaitFishUploads(); err != nil {
			return err
		}
		for _, m := range s.Models() {
			if err := m.Draw(s.renderer, shared); err != nil {
				return err
			}
		}
		return nil
	}

	for _, m := range s.opaque {
		m.PrepareForDraw(s.renderer)
		if err := m.Draw(s.renderer, shared); err != nil {
			return err
		}
	}
	for _, f := range s.fish {
		f.PrepareForDraw(s.renderer)
		if f.Pool().AsyncUpload() {
			if err := s.renderer.AwaitUpload(f.Pool()); err != nil {
				return fmt.Errorf("fish upload for %s: %w", f.Name(), err)
			}
		}
		if err := f.Draw(s.renderer, shared); err != nil {
			return err
		}
	}
	for _, m := range s.blended {
		m.PrepareForDraw(s.renderer)
		if err := m.Draw(s.renderer, shared); err != nil {
			return err
		}
	}
	return nil
}

// awaitFishUploads drives every async fish pool's staged copy to completion.
func (s *aquariumScene) awaitFishUploads() error {
	for _, f := range s.fish {
		if !f.Pool().AsyncUpload() {
			continue
		}
		if err := s.renderer.AwaitUpload(f.Pool()); err != nil {
			return fmt.Errorf("fish upload for %s: %w", f.Name(), err)
		}
	}
	return nil
}

func (s *aquariumScene) Release() {
	for _, m := range s.Models() {
		m.Release()
	}
	s.opaque, s.blended, s.fish, s.objects = nil, nil, nil, nil

	for _, tex := range s.textures {
		tex.Release()
	}
	s.textures = make(map[string]*renderer.Texture)

	if s.skybox != nil {
		s.skybox.Release()
		s.skybox = nil
	}
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
	if s.generalProvider != nil {
		s.generalProvider.Release()
		s.generalProvider = nil
	}
	if s.worldProvider != nil {
		s.worldProvider.Release()
		s.worldProvider = nil
	}
}
