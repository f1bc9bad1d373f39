package common

import (
	"math"
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// DegToRad converts an angle from degrees to radians.
//
// Parameters:
//   - deg: angle in degrees
//
// Returns:
//   - float32: angle in radians
func DegToRad(deg float32) float32 {
	return deg * math.Pi / 180.0
}

// RandomStream is a deterministic linear congruential generator used to drive
// per-fish motion parameters. Resetting the stream at the start of every frame
// keeps each fish on the same trajectory from frame to frame regardless of how
// many fish are spawned or despawned in between.
type RandomStream struct {
	seed uint32
}

// Reset rewinds the stream to its initial state. Call once per frame before
// updating fish simulation state.
func (r *RandomStream) Reset() {
	r.seed = 0
}

// Next returns the next pseudo-random value in [0, 1).
//
// Returns:
//   - float32: uniformly distributed value in [0, 1)
func (r *RandomStream) Next() float32 {
	r.seed = r.seed*134775813 + 1
	return float32(float64(r.seed) / 4294967296.0)
}
