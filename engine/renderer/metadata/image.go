package metadata

import (
	"image"

	"golang.org/x/image/draw"
)

/**
 * @brief Decoded image pixels, always 8-bit RGBA, rows top to bottom.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

// NewImageResourceData converts any image into tightly packed RGBA8 pixels.
func NewImageResourceData(img image.Image, flipY bool) *ImageResourceData {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	pixels := rgba.Pix
	if flipY {
		pixels = make([]uint8, len(rgba.Pix))
		stride := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			copy(pixels[y*stride:(y+1)*stride], rgba.Pix[(b.Dy()-1-y)*stride:(b.Dy()-y)*stride])
		}
	}
	return &ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(b.Dx()),
		Height:       uint32(b.Dy()),
		Pixels:       pixels,
	}
}
