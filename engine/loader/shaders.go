package loader

import "embed"

// Built-in WGSL program sources. A shader directory supplied via
// WithShaderDir overrides individual files by name.
//
//go:embed assets/shaders/*.wgsl
var shaderSources embed.FS

// programFiles maps program identifiers from the scene table to their WGSL
// source files.
var programFiles = map[string]string{
	"diffuseVertexShader":              "diffuse_vertex.wgsl",
	"diffuseFragmentShader":            "diffuse_fragment.wgsl",
	"normalMapVertexShader":            "normal_map_vertex.wgsl",
	"normalMapFragmentShader":          "normal_map_fragment.wgsl",
	"reflectionMapVertexShader":        "reflection_map_vertex.wgsl",
	"reflectionMapFragmentShader":      "reflection_map_fragment.wgsl",
	"fishVertexShader":                 "fish_vertex.wgsl",
	"fishNormalMapFragmentShader":      "fish_normal_map_fragment.wgsl",
	"fishReflectionFragmentShader":     "fish_reflection_fragment.wgsl",
	"innerRefractionMapVertexShader":   "inner_refraction_map_vertex.wgsl",
	"innerRefractionMapFragmentShader": "inner_refraction_map_fragment.wgsl",
	"seaweedVertexShader":              "seaweed_vertex.wgsl",
	"seaweedFragmentShader":            "seaweed_fragment.wgsl",
}
