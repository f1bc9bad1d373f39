package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/reef-gfx/aquarium/common"
)

// Default orbit path and projection settings, tuned for the tank scene.
const (
	defaultEyeSpeed     = 0.06
	defaultEyeRadius    = 60.0
	defaultEyeHeight    = 19.0
	defaultTargetRadius = 88.0
	defaultTargetHeight = 0.0
	defaultFieldOfView  = 85.0
	defaultFovFudge     = 1.0

	nearPlane = 1.0
	farPlane  = 25000.0
)

// FrameState is the camera output for one frame: every matrix and vector the
// uniform blocks consume, computed once in Advance and read by all models.
type FrameState struct {
	Projection            mgl32.Mat4
	View                  mgl32.Mat4
	ViewInverse           mgl32.Mat4
	ViewProjection        mgl32.Mat4
	ViewProjectionInverse mgl32.Mat4

	// Sky variants drop the view translation so the dome stays centered on
	// the eye.
	SkyView                  mgl32.Mat4
	SkyViewProjection        mgl32.Mat4
	SkyViewProjectionInverse mgl32.Mat4

	EyePosition   mgl32.Vec3
	Target        mgl32.Vec3
	LightWorldPos mgl32.Vec3
}

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	eyeSpeed     float64
	eyeRadius    float32
	eyeHeight    float32
	targetRadius float32
	targetHeight float32
	fieldOfView  float32
	fovFudge     float32
	aspect       float32

	eyeClock float64
	frame    FrameState
}

// Camera drives the orbiting viewpoint around the tank. Advance moves the eye
// along its circular path and rebuilds the FrameState consumed by the uniform
// updates; the camera has no user input.
type Camera interface {
	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// SetAspect sets the aspect ratio (width / height). Takes effect on the
	// next Advance.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// EyeClock returns the accumulated orbit clock in seconds.
	//
	// Returns:
	//   - float64: the orbit clock
	EyeClock() float64

	// Advance moves the eye along the orbit by elapsed seconds and recomputes
	// the frame state.
	//
	// Parameters:
	//   - elapsed: seconds since the previous frame
	//
	// Returns:
	//   - FrameState: the recomputed frame state
	Advance(elapsed float64) FrameState

	// Frame returns the frame state computed by the last Advance.
	//
	// Returns:
	//   - FrameState: the current frame state
	Frame() FrameState
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera on the default orbit path. The frame state is
// valid immediately; Advance with a zero elapsed time recomputes it for a new
// aspect ratio.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           mgl32.Vec3{0, 1, 0},
		eyeSpeed:     defaultEyeSpeed,
		eyeRadius:    defaultEyeRadius,
		eyeHeight:    defaultEyeHeight,
		targetRadius: defaultTargetRadius,
		targetHeight: defaultTargetHeight,
		fieldOfView:  defaultFieldOfView,
		fovFudge:     defaultFovFudge,
		aspect:       1.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateFrame()
	return c
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) EyeClock() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eyeClock
}

func (c *cameraImpl) Advance(elapsed float64) FrameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eyeClock += elapsed * c.eyeSpeed
	c.updateFrame()
	return c.frame
}

func (c *cameraImpl) Frame() FrameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// updateFrame recomputes every FrameState field from the current orbit clock.
// Caller must hold the mutex.
func (c *cameraImpl) updateFrame() {
	sinClock := float32(math.Sin(c.eyeClock))
	cosClock := float32(math.Cos(c.eyeClock))
	sinOpp := float32(math.Sin(c.eyeClock + math.Pi))
	cosOpp := float32(math.Cos(c.eyeClock + math.Pi))

	eye := mgl32.Vec3{sinClock * c.eyeRadius, c.eyeHeight, cosClock * c.eyeRadius}
	target := mgl32.Vec3{sinOpp * c.targetRadius, c.targetHeight, cosOpp * c.targetRadius}

	// Symmetric frustum from the vertical field of view, matching the aspect
	// ratio on the horizontal extent.
	top := float32(math.Tan(float64(common.DegToRad(c.fieldOfView*c.fovFudge))*0.5)) * nearPlane
	bottom := -top
	left := c.aspect * bottom
	right := c.aspect * top

	projection := mgl32.Frustum(left, right, bottom, top, nearPlane, farPlane)
	view := mgl32.LookAtV(eye, target, c.up)
	viewInverse := view.Inv()
	viewProjection := projection.Mul4(view)

	skyView := view
	skyView[12] = 0
	skyView[13] = 0
	skyView[14] = 0
	skyViewProjection := projection.Mul4(skyView)

	// The light sits above and to the side of the eye, offset along the
	// camera's right and up axes.
	right3 := mgl32.Vec3{viewInverse[0], viewInverse[1], viewInverse[2]}
	up3 := mgl32.Vec3{viewInverse[4], viewInverse[5], viewInverse[6]}
	lightWorldPos := eye.Add(right3.Mul(20)).Add(up3.Mul(30))

	c.frame = FrameState{
		Projection:               projection,
		View:                     view,
		ViewInverse:              viewInverse,
		ViewProjection:           viewProjection,
		ViewProjectionInverse:    viewProjection.Inv(),
		SkyView:                  skyView,
		SkyViewProjection:        skyViewProjection,
		SkyViewProjectionInverse: skyViewProjection.Inv(),
		EyePosition:              eye,
		Target:                   target,
		LightWorldPos:            lightWorldPos,
	}
}
