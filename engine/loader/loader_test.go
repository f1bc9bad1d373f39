package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reef-gfx/aquarium/engine/model"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadModelDecodesStreams(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "RockA.json", `{
		"position": [1, 2, 3, 4, 5, 6],
		"normal": [0, 1, 0, 0, 1, 0],
		"texCoord": [0, 0, 1, 1],
		"indices": [0, 1, 0],
		"textures": {"diffuse": "RockA.png"}
	}`)

	l := NewLoader(dir)
	asset, err := l.LoadModel("RockA")
	require.NoError(t, err)

	assert.Equal(t, 24, len(asset.Mesh.Positions))
	assert.Equal(t, 24, len(asset.Mesh.Normals))
	assert.Equal(t, 16, len(asset.Mesh.TexCoords))
	assert.Empty(t, asset.Mesh.Tangents)
	assert.Equal(t, 6, len(asset.Mesh.Indices))
	assert.Equal(t, 3, asset.Mesh.IndexCount)
	assert.False(t, asset.Mesh.NormalMapped())
	assert.Equal(t, "RockA.png", asset.Textures["diffuse"])
}

func TestLoadModelCachesByName(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Coral.json", `{
		"position": [0, 0, 0],
		"indices": [0]
	}`)

	l := NewLoader(dir)
	first, err := l.LoadModel("Coral")
	require.NoError(t, err)

	// Removing the file proves the second load is served from cache.
	require.NoError(t, os.Remove(filepath.Join(dir, "Coral.json")))
	second, err := l.LoadModel("Coral")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadModelRejectsEmptyGeometry(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Empty.json", `{"textures": {}}`)

	l := NewLoader(dir)
	_, err := l.LoadModel("Empty")
	assert.ErrorContains(t, err, "no geometry")
}

func TestLoadModelMissingFile(t *testing.T) {
	l := NewLoader(t.TempDir())
	_, err := l.LoadModel("Nope")
	assert.Error(t, err)
}

func TestLoadPlacement(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "PropPlacement.json", `[
		{"name": "RockA", "worldMatrices": [
			[1,0,0,0, 0,1,0,0, 0,0,1,0, 5,0,-3,1],
			[1,0,0,0, 0,1,0,0, 0,0,1,0, 0,2,0,1]
		]},
		{"name": "SeaweedA", "worldMatrices": [
			[1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]
		]}
	]`)

	l := NewLoader(dir)
	placements, err := l.LoadPlacement()
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.Equal(t, "RockA", placements[0].Name)
	assert.Len(t, placements[0].WorldMatrices, 2)
	assert.Equal(t, float32(5), placements[0].WorldMatrices[0][12])
	assert.Equal(t, "SeaweedA", placements[1].Name)
}

func TestLoadBehaviors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "behaviors.json", `[
		{"frame": 0, "op": "+", "count": 10},
		{"frame": 2, "op": "-", "count": 5}
	]`)

	l := NewLoader(dir)
	behaviors, err := l.LoadBehaviors(filepath.Join(dir, "behaviors.json"))
	require.NoError(t, err)
	require.Len(t, behaviors, 2)
	assert.Equal(t, Behavior{Frame: 0, Op: "+", Count: 10}, behaviors[0])
	assert.Equal(t, Behavior{Frame: 2, Op: "-", Count: 5}, behaviors[1])
}

func TestLoadBehaviorsRejectsUnknownOp(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "behaviors.json", `[{"frame": 0, "op": "*", "count": 1}]`)

	l := NewLoader(dir)
	_, err := l.LoadBehaviors(filepath.Join(dir, "behaviors.json"))
	assert.ErrorContains(t, err, "unknown op")
}

func TestProgramReturnsBuiltInSources(t *testing.T) {
	l := NewLoader(t.TempDir())
	vs, fs, err := l.Program("diffuseVertexShader", "diffuseFragmentShader")
	require.NoError(t, err)
	assert.Contains(t, vs, "vs_main")
	assert.Contains(t, fs, "fs_main")
}

func TestProgramUnknownIdentifier(t *testing.T) {
	l := NewLoader(t.TempDir())
	_, _, err := l.Program("diffuseVertexShader", "noSuchFragmentShader")
	assert.ErrorContains(t, err, "unknown program")
}

func TestProgramShaderDirOverride(t *testing.T) {
	shaderDir := t.TempDir()
	writeFixture(t, shaderDir, "diffuse_vertex.wgsl", "// override\nfn vs_main() {}")

	l := NewLoader(t.TempDir(), WithShaderDir(shaderDir))
	vs, fs, err := l.Program("diffuseVertexShader", "diffuseFragmentShader")
	require.NoError(t, err)
	assert.Contains(t, vs, "// override")
	// The fragment file has no override so the built-in source is used.
	assert.Contains(t, fs, "textureSample")
}

func TestSelectProgram(t *testing.T) {
	explicit := model.SceneEntry{Program: [2]string{"fishVertexShader", "fishReflectionFragmentShader"}}
	vs, fs := SelectProgram(explicit, map[string]string{"normalMap": "n.png"})
	assert.Equal(t, "fishVertexShader", vs)
	assert.Equal(t, "fishReflectionFragmentShader", fs)

	vs, fs = SelectProgram(model.SceneEntry{}, map[string]string{
		"diffuse": "d.png", "normalMap": "n.png", "reflectionMap": "r.png",
	})
	assert.Equal(t, "reflectionMapVertexShader", vs)
	assert.Equal(t, "reflectionMapFragmentShader", fs)

	vs, fs = SelectProgram(model.SceneEntry{}, map[string]string{
		"diffuse": "d.png", "normalMap": "n.png",
	})
	assert.Equal(t, "normalMapVertexShader", vs)
	assert.Equal(t, "normalMapFragmentShader", fs)

	vs, fs = SelectProgram(model.SceneEntry{}, map[string]string{"diffuse": "d.png"})
	assert.Equal(t, "diffuseVertexShader", vs)
	assert.Equal(t, "diffuseFragmentShader", fs)
}

func TestEveryProgramFileIsEmbedded(t *testing.T) {
	for id, file := range programFiles {
		raw, err := shaderSources.ReadFile("assets/shaders/" + file)
		require.NoError(t, err, "program %s", id)
		assert.NotEmpty(t, raw, "program %s", id)
	}
}
