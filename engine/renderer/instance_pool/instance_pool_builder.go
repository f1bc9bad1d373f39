package instance_pool

// PoolOption is a functional option used to configure a Pool during construction.
type PoolOption func(*Pool)

// WithMode selects how instance blocks are exposed to draw calls.
//
// Parameters:
//   - mode: bind group exposure mode
//
// Returns:
//   - PoolOption: a function that sets the mode for this pool
func WithMode(mode Mode) PoolOption {
	return func(p *Pool) {
		p.mode = mode
	}
}

// WithAsyncUpload routes uploads through a mapped staging buffer instead of
// immediate queue writes.
//
// Parameters:
//   - enabled: true to enable the staging path
//
// Returns:
//   - PoolOption: a function that sets the upload path for this pool
func WithAsyncUpload(enabled bool) PoolOption {
	return func(p *Pool) {
		p.async = enabled
	}
}
