package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

var (
	ColorWhite       = Color{X: 1, Y: 1, Z: 1, W: 1}
	ColorBlack       = Color{X: 0, Y: 0, Z: 0, W: 1}
	ColorRed         = Color{X: 1, Y: 0, Z: 0, W: 1}
	ColorGreen       = Color{X: 0, Y: 1, Z: 0, W: 1}
	ColorBlue        = Color{X: 0, Y: 0, Z: 1, W: 1}
	ColorTransparent = Color{}
)

func NewColor(r, g, b, a float32) Color {
	return Color{X: r, Y: g, Z: b, W: a}
}

// NewColorRGBA8 converts 8-bit channels into a Color.
func NewColorRGBA8(r, g, b, a uint8) Color {
	return Color{X: float32(r) / 255, Y: float32(g) / 255, Z: float32(b) / 255, W: float32(a) / 255}
}

func (c Color) Vec4() Vec4 {
	return Vec4(c)
}
