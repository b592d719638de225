package metadata

import "github.com/spaghettifunk/prism/engine/math"

// Rect is an integer pixel rectangle on the atlas canvas.
type Rect struct {
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
}

func (r Rect) Area() uint64 {
	return uint64(r.Width) * uint64(r.Height)
}

func (r Rect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.Width <= r.X+r.Width && o.Y+o.Height <= r.Y+r.Height
}

// Overlaps reports whether r and o share any pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width && r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

/** @brief Normalized texture coordinates, top-left (U0,V0) to bottom-right (U1,V1). */
type UVRect struct {
	U0, V0, U1, V1 float32
}

func (uv UVRect) Offset() math.Vec2 {
	return math.Vec2{X: uv.U0, Y: uv.V0}
}

func (uv UVRect) Scale() math.Vec2 {
	return math.Vec2{X: uv.U1 - uv.U0, Y: uv.V1 - uv.V0}
}

/**
 * @brief A packed region on the atlas. The pixel rectangle never changes; the
 * UV rectangle is recomputed whenever the canvas grows.
 */
type AtlasRegion struct {
	Rect
	UV UVRect
}

func NewAtlasRegion(r Rect, canvasWidth, canvasHeight uint32) AtlasRegion {
	region := AtlasRegion{Rect: r}
	region.Refresh(canvasWidth, canvasHeight)
	return region
}

// Refresh recomputes UV from the pixel rectangle for the given canvas size.
func (r *AtlasRegion) Refresh(canvasWidth, canvasHeight uint32) {
	w, h := float32(canvasWidth), float32(canvasHeight)
	r.UV = UVRect{
		U0: float32(r.X) / w,
		V0: float32(r.Y) / h,
		U1: float32(r.X+r.Width) / w,
		V1: float32(r.Y+r.Height) / h,
	}
}

// Sub returns the region covering x,y,w,h relative to r's top-left corner.
func (r AtlasRegion) Sub(x, y, width, height, canvasWidth, canvasHeight uint32) AtlasRegion {
	return NewAtlasRegion(Rect{X: r.X + x, Y: r.Y + y, Width: width, Height: height}, canvasWidth, canvasHeight)
}
