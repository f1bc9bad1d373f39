package camera

// CameraBuilderOption is a functional option applied to a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithAspect sets the initial aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: a function that applies the aspect option to a camera
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithOrbit overrides the orbit path parameters. The eye circles the scene at
// eyeRadius and eyeHeight while looking at a target circling opposite it at
// targetRadius and targetHeight.
//
// Parameters:
//   - eyeSpeed: orbit speed in radians per second
//   - eyeRadius: eye distance from the scene center
//   - eyeHeight: eye height above the tank floor
//   - targetRadius: target distance from the scene center
//   - targetHeight: target height above the tank floor
//
// Returns:
//   - CameraBuilderOption: a function that applies the orbit option to a camera
func WithOrbit(eyeSpeed float64, eyeRadius, eyeHeight, targetRadius, targetHeight float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eyeSpeed = eyeSpeed
		c.eyeRadius = eyeRadius
		c.eyeHeight = eyeHeight
		c.targetRadius = targetRadius
		c.targetHeight = targetHeight
	}
}

// WithFieldOfView sets the vertical field of view in degrees.
//
// Parameters:
//   - degrees: the field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that applies the field of view option to a camera
func WithFieldOfView(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fieldOfView = degrees
	}
}
