package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reef-gfx/aquarium/common"
	"github.com/reef-gfx/aquarium/engine/model"
)

// ModelAsset is the decoded content of one model file: the attribute streams
// ready for GPU upload and the texture image filenames keyed by role.
type ModelAsset struct {
	Mesh     *model.Mesh
	Textures map[string]string
}

// Placement is one entry of the placement file: a model name and the world
// matrices of every copy placed in the scene.
type Placement struct {
	Name          string        `json:"name"`
	WorldMatrices [][16]float32 `json:"worldMatrices"`
}

// Behavior is one scripted fish-count change: after Frame frames, Op ("+"
// or "-") is applied with Count.
type Behavior struct {
	Frame int    `json:"frame"`
	Op    string `json:"op"`
	Count int    `json:"count"`
}

// modelFile is the on-disk model layout: named float arrays plus uint16
// indices, and the texture role map.
type modelFile struct {
	Position []float32 `json:"position"`
	Normal   []float32 `json:"normal"`
	TexCoord []float32 `json:"texCoord"`
	Tangent  []float32 `json:"tangent"`
	Binormal []float32 `json:"binormal"`
	Indices  []uint16  `json:"indices"`

	Textures map[string]string `json:"textures"`
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assetDir  string
	shaderDir string

	modelCache   map[string]*ModelAsset
	textureCache map[string]common.TextureStagingData
	programCache map[string][2]string
}

// Loader reads the scene's assets: JSON models and placements, scripted
// behaviors, texture images, and WGSL program sources. Results are cached by
// name so shared assets decode once.
type Loader interface {
	// LoadModel reads and decodes <assetDir>/<name>.json.
	//
	// Parameters:
	//   - name: the model name from the scene table
	//
	// Returns:
	//   - *ModelAsset: the decoded mesh and texture roles
	//   - error: an error if the file is missing or malformed
	LoadModel(name string) (*ModelAsset, error)

	// LoadPlacement reads the placement file listing every static model copy
	// and its world matrix.
	//
	// Returns:
	//   - []Placement: the placements in file order
	//   - error: an error if the file is missing or malformed
	LoadPlacement() ([]Placement, error)

	// LoadBehaviors reads a scripted fish-count behavior file.
	//
	// Parameters:
	//   - path: path to the behavior JSON file
	//
	// Returns:
	//   - []Behavior: the behaviors in file order
	//   - error: an error if the file is missing or malformed
	LoadBehaviors(path string) ([]Behavior, error)

	// LoadTexture decodes an image file into staging data with a full mip
	// chain. Cached by filename.
	//
	// Parameters:
	//   - file: the image filename relative to the asset directory
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels and mips
	//   - error: an error if the file cannot be decoded
	LoadTexture(file string) (common.TextureStagingData, error)

	// LoadCubeMap decodes the six face images of a cube map, ordered
	// +X, -X, +Y, -Y, +Z, -Z.
	//
	// Parameters:
	//   - files: the six face filenames relative to the asset directory
	//
	// Returns:
	//   - [6]common.TextureStagingData: the decoded faces
	//   - error: an error if any face cannot be decoded
	LoadCubeMap(files [6]string) ([6]common.TextureStagingData, error)

	// Program returns the WGSL vertex and fragment sources for a program
	// pair. Sources come from the shader directory when set, otherwise from
	// the compiled-in defaults. Cached by vsID+fsID.
	//
	// Parameters:
	//   - vsID: the vertex program identifier
	//   - fsID: the fragment program identifier
	//
	// Returns:
	//   - string: the vertex WGSL source
	//   - string: the fragment WGSL source
	//   - error: an error if either identifier is unknown
	Program(vsID, fsID string) (string, string, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader rooted at the given asset directory.
//
// Parameters:
//   - assetDir: directory holding model/placement/texture files
//   - options: a variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the newly created loader
func NewLoader(assetDir string, options ...LoaderBuilderOption) Loader {
	l := &loader{
		assetDir:     assetDir,
		modelCache:   make(map[string]*ModelAsset),
		textureCache: make(map[string]common.TextureStagingData),
		programCache: make(map[string][2]string),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) LoadModel(name string) (*ModelAsset, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	path := filepath.Join(l.assetDir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", name, err)
	}

	var file modelFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", name, err)
	}
	if len(file.Position) == 0 || len(file.Indices) == 0 {
		return nil, fmt.Errorf("model %s has no geometry", name)
	}

	asset := &ModelAsset{
		Mesh: &model.Mesh{
			Positions:  common.SliceToBytes(file.Position),
			Normals:    common.SliceToBytes(file.Normal),
			TexCoords:  common.SliceToBytes(file.TexCoord),
			Tangents:   common.SliceToBytes(file.Tangent),
			Binormals:  common.SliceToBytes(file.Binormal),
			Indices:    common.SliceToBytes(file.Indices),
			IndexCount: len(file.Indices),
		},
		Textures: file.Textures,
	}

	l.mu.Lock()
	l.modelCache[name] = asset
	l.mu.Unlock()
	return asset, nil
}

func (l *loader) LoadPlacement() ([]Placement, error) {
	path := filepath.Join(l.assetDir, "PropPlacement.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read placement file: %w", err)
	}

	var placements []Placement
	if err := json.Unmarshal(raw, &placements); err != nil {
		return nil, fmt.Errorf("failed to parse placement file: %w", err)
	}
	return placements, nil
}

func (l *loader) LoadBehaviors(path string) ([]Behavior, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior file: %w", err)
	}

	var behaviors []Behavior
	if err := json.Unmarshal(raw, &behaviors); err != nil {
		return nil, fmt.Errorf("failed to parse behavior file: %w", err)
	}
	for i, b := range behaviors {
		if b.Op != "+" && b.Op != "-" {
			return nil, fmt.Errorf("behavior %d has unknown op %q", i, b.Op)
		}
	}
	return behaviors, nil
}

func (l *loader) LoadTexture(file string) (common.TextureStagingData, error) {
	l.mu.RLock()
	if cached, ok := l.textureCache[file]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	staging, err := common.DecodeTextureFile(filepath.Join(l.assetDir, file))
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to decode texture %s: %w", file, err)
	}

	l.mu.Lock()
	l.textureCache[file] = staging
	l.mu.Unlock()
	return staging, nil
}

func (l *loader) LoadCubeMap(files [6]string) ([6]common.TextureStagingData, error) {
	var faces [6]common.TextureStagingData
	for i, file := range files {
		staging, err := l.LoadTexture(file)
		if err != nil {
			return faces, err
		}
		faces[i] = staging
	}
	return faces, nil
}

func (l *loader) Program(vsID, fsID string) (string, string, error) {
	key := vsID + "+" + fsID
	l.mu.RLock()
	if cached, ok := l.programCache[key]; ok {
		l.mu.RUnlock()
		return cached[0], cached[1], nil
	}
	l.mu.RUnlock()

	vs, err := l.programSource(vsID)
	if err != nil {
		return "", "", err
	}
	fs, err := l.programSource(fsID)
	if err != nil {
		return "", "", err
	}

	l.mu.Lock()
	l.programCache[key] = [2]string{vs, fs}
	l.mu.Unlock()
	return vs, fs, nil
}

func (l *loader) programSource(id string) (string, error) {
	file, ok := programFiles[id]
	if !ok {
		return "", fmt.Errorf("unknown program %q", id)
	}
	if l.shaderDir != "" {
		raw, err := os.ReadFile(filepath.Join(l.shaderDir, file))
		if err == nil {
			return string(raw), nil
		}
		// Fall through to the compiled-in source when no override exists.
	}
	raw, err := shaderSources.ReadFile("assets/shaders/" + file)
	if err != nil {
		return "", fmt.Errorf("missing built-in program %q: %w", id, err)
	}
	return string(raw), nil
}

// SelectProgram resolves the program pair for a scene entry: the explicit
// pair from the table when present, else by which optional textures the
// model carries.
//
// Parameters:
//   - entry: the scene table entry
//   - textures: the model's texture roles from its asset file
//
// Returns:
//   - string: the vertex program identifier
//   - string: the fragment program identifier
func SelectProgram(entry model.SceneEntry, textures map[string]string) (string, string) {
	if entry.Program[0] != "" {
		return entry.Program[0], entry.Program[1]
	}
	if _, ok := textures["reflectionMap"]; ok {
		return "reflectionMapVertexShader", "reflectionMapFragmentShader"
	}
	if _, ok := textures["normalMap"]; ok {
		return "normalMapVertexShader", "normalMapFragmentShader"
	}
	return "diffuseVertexShader", "diffuseFragmentShader"
}
