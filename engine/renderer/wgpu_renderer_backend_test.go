package renderer

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSurfaceTextureSucceedsWithoutReconfigure(t *testing.T) {
	want := new(wgpu.Texture)
	reconfigures := 0

	got, err := acquireSurfaceTexture(
		func() (*wgpu.Texture, error) { return want, nil },
		func() { reconfigures++ },
	)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Zero(t, reconfigures)
}

func TestAcquireSurfaceTextureRetriesAfterReconfigure(t *testing.T) {
	want := new(wgpu.Texture)
	acquires := 0
	reconfigures := 0

	got, err := acquireSurfaceTexture(
		func() (*wgpu.Texture, error) {
			acquires++
			if acquires == 1 {
				return nil, errors.New("surface outdated")
			}
			return want, nil
		},
		func() { reconfigures++ },
	)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 2, acquires)
	assert.Equal(t, 1, reconfigures)
}

func TestAcquireSurfaceTextureGivesUpAfterOneRetry(t *testing.T) {
	acquires := 0
	reconfigures := 0

	_, err := acquireSurfaceTexture(
		func() (*wgpu.Texture, error) {
			acquires++
			return nil, errors.New("surface lost")
		},
		func() { reconfigures++ },
	)
	require.Error(t, err)
	assert.Equal(t, 2, acquires)
	assert.Equal(t, 1, reconfigures)
}
