// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// Mips holds one RGBA byte slice per mip level, starting at the full
// resolution; Width and Height describe level 0. Each successive level halves
// both dimensions (rounded down, never below 1).
type TextureStagingData struct {
	// Mips is the per-level pixel data in RGBA format, 4 bytes per pixel.
	// Mips[0] is the base level.
	Mips [][]byte
	// Width is the width of mip level 0 in pixels.
	Width uint32
	// Height is the height of mip level 0 in pixels.
	Height uint32
}

// MipLevelCount returns the number of mip levels staged for upload.
func (t *TextureStagingData) MipLevelCount() uint32 {
	return uint32(len(t.Mips))
}

// MipSize returns the pixel dimensions of the given mip level.
//
// Parameters:
//   - level: mip level index (0 is the base level)
//
// Returns:
//   - uint32: level width in pixels
//   - uint32: level height in pixels
func (t *TextureStagingData) MipSize(level uint32) (uint32, uint32) {
	w := max(t.Width>>level, 1)
	h := max(t.Height>>level, 1)
	return w, h
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DecodeTextureFile decodes a PNG or JPEG file into RGBA staging data with a
// full mip chain. Mip levels below the base are produced with a bilinear
// downscale.
//
// Parameters:
//   - path: image file to decode
//
// Returns:
//   - TextureStagingData: staged pixel data with all mip levels populated
//   - error: error if the file cannot be opened or decoded
func DecodeTextureFile(path string) (TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", path, err)
	}
	return stageImage(img), nil
}

// DecodeTextureBytes decodes in-memory PNG or JPEG bytes into RGBA staging
// data with a full mip chain.
//
// Parameters:
//   - data: raw encoded image bytes
//
// Returns:
//   - TextureStagingData: staged pixel data with all mip levels populated
//   - error: error if decoding fails
func DecodeTextureBytes(data []byte) (TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode embedded image: %w", err)
	}
	return stageImage(img), nil
}

func stageImage(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(base, base.Bounds(), img, bounds.Min, draw.Src)

	staging := TextureStagingData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
	staging.Mips = append(staging.Mips, base.Pix)

	prev := base
	for prev.Bounds().Dx() > 1 || prev.Bounds().Dy() > 1 {
		w := max(prev.Bounds().Dx()/2, 1)
		h := max(prev.Bounds().Dy()/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		staging.Mips = append(staging.Mips, next.Pix)
		prev = next
	}
	return staging
}
