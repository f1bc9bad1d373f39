package loader

// LoaderBuilderOption is a functional option applied to a loader during construction via NewLoader.
type LoaderBuilderOption func(*loader)

// WithShaderDir points the loader at a directory of WGSL program files that
// override the compiled-in sources. Files are looked up by program filename;
// a missing file falls back to the built-in source.
//
// Parameters:
//   - dir: the shader override directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the shader directory option to a loader
func WithShaderDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.shaderDir = dir
	}
}
