package light

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithLightColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the light color option to a lightImpl
func WithLightColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightColor = [4]float32{r, g, b, 1}
	}
}

// WithAmbient is an option builder that sets the ambient color term.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the ambient option to a lightImpl
func WithAmbient(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.ambient = [4]float32{r, g, b, 0}
	}
}

// WithSpecular is an option builder that sets the specular color term.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the specular option to a lightImpl
func WithSpecular(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.specular = [4]float32{r, g, b, 1}
	}
}

// WithFog is an option builder that sets the fog curve parameters.
//
// Parameters:
//   - power: exponent applied to fragment depth
//   - mult: multiplier applied after the power curve
//   - offset: subtracted after the multiplier
//
// Returns:
//   - LightBuilderOption: a function that applies the fog option to a lightImpl
func WithFog(power, mult, offset float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.fogPower = power
		l.fogMult = mult
		l.fogOffset = offset
	}
}

// WithFogColor is an option builder that sets the fog color.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the fog color option to a lightImpl
func WithFogColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.fogColor = [4]float32{r, g, b, 1}
	}
}
