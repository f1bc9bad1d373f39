package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraStartsOnOrbitPath(t *testing.T) {
	cam := NewCamera(WithAspect(16.0 / 9.0))

	frame := cam.Frame()
	assert.InDelta(t, 0.0, frame.EyePosition.X(), 1e-5)
	assert.InDelta(t, defaultEyeHeight, frame.EyePosition.Y(), 1e-5)
	assert.InDelta(t, defaultEyeRadius, frame.EyePosition.Z(), 1e-5)

	// The target sits on the opposite side of the scene center.
	assert.InDelta(t, 0.0, frame.Target.X(), 1e-4)
	assert.InDelta(t, -defaultTargetRadius, frame.Target.Z(), 1e-4)
}

func TestCameraAdvanceMovesEye(t *testing.T) {
	cam := NewCamera()

	before := cam.Frame().EyePosition
	after := cam.Advance(1.0).EyePosition

	assert.InDelta(t, defaultEyeSpeed, cam.EyeClock(), 1e-9)
	assert.NotEqual(t, before, after)

	// The eye stays on the orbit circle.
	radius := math.Hypot(float64(after.X()), float64(after.Z()))
	assert.InDelta(t, defaultEyeRadius, radius, 1e-4)
	assert.InDelta(t, defaultEyeHeight, after.Y(), 1e-5)
}

func TestCameraAdvanceIsDeterministic(t *testing.T) {
	a := NewCamera(WithAspect(2.0))
	b := NewCamera(WithAspect(2.0))

	var fa, fb FrameState
	for i := 0; i < 10; i++ {
		fa = a.Advance(1.0 / 60.0)
		fb = b.Advance(1.0 / 60.0)
	}

	assert.Equal(t, fa, fb)
}

func TestCameraSkyViewDropsTranslation(t *testing.T) {
	cam := NewCamera()
	frame := cam.Advance(0.5)

	assert.Zero(t, frame.SkyView[12])
	assert.Zero(t, frame.SkyView[13])
	assert.Zero(t, frame.SkyView[14])
}

func TestCameraInversesRoundTrip(t *testing.T) {
	cam := NewCamera(WithAspect(1.5))
	frame := cam.Advance(2.0)

	identity := frame.ViewProjection.Mul4(frame.ViewProjectionInverse)
	expected := mgl32.Ident4()
	for i := range identity {
		assert.InDelta(t, expected[i], identity[i], 1e-3)
	}
}

func TestCameraLightFollowsEye(t *testing.T) {
	cam := NewCamera()
	frame := cam.Frame()

	// The light offset is 20 along the camera right axis plus 30 along the
	// camera up axis, so its distance from the eye is fixed.
	offset := frame.LightWorldPos.Sub(frame.EyePosition)
	assert.InDelta(t, math.Sqrt(20*20+30*30), float64(offset.Len()), 1e-3)
}
