package model

import (
	"github.com/reef-gfx/aquarium/engine/renderer/instance_pool"
)

// ModelBuilderOption is a functional option applied to a renderable during construction via New.
type ModelBuilderOption func(Model)

// WithPool attaches the per-instance resource pool to a fish renderable. The
// option is ignored for non-fish kinds. Fish models fail Init without a pool.
//
// Parameters:
//   - pool: the instance pool for this species
//
// Returns:
//   - ModelBuilderOption: a function that applies the pool option to a model
func WithPool(pool *instance_pool.Pool) ModelBuilderOption {
	return func(m Model) {
		if fm, ok := m.(*fishModel); ok {
			fm.pool = pool
		}
	}
}

// WithBlend overrides the alpha blending setting from the scene table entry.
//
// Parameters:
//   - blend: true to enable alpha blending for this model's pipeline
//
// Returns:
//   - ModelBuilderOption: a function that applies the blend option to a model
func WithBlend(blend bool) ModelBuilderOption {
	return func(m Model) {
		switch v := m.(type) {
		case *genericModel:
			v.blend = blend
		case *fishModel:
			v.blend = blend
		case *innerModel:
			v.blend = blend
		case *outsideModel:
			v.blend = blend
		case *seaweedModel:
			v.blend = blend
		}
	}
}
