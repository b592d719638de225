package retained

import (
	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/text"
)

// Assets is what objects read while preparing their records.
type Assets interface {
	White() metadata.AtlasRegion
	Region(label string) (metadata.AtlasRegion, bool)
	SubRegion(label string, x, y, width, height uint32) (metadata.AtlasRegion, error)
	GlyphSet(label string) (*atlas.GlyphSet, error)
	Shaper() text.Shaper
}

// Drawable is implemented by Mesh, Sprite and Text only.
type Drawable interface {
	GeometryID() uint32
	// Layer orders drawing: lower layers are drawn first.
	Layer() uint32
	Dirty() DirtyFlags
	IsDirty() bool
	Visible() bool
	// Prepare recomputes the cached records for every dirty bit it can
	// handle, clears those bits and reports whether a record changed.
	Prepare(assets Assets) bool

	markDirty(flags DirtyFlags)
}

// instanced drawables own exactly one InstanceRecord.
type instanced interface {
	Drawable
	InstanceRecord() metadata.InstanceRecord
	Geometry() *metadata.Geometry
	// Culled reports a zero scale on any drawn axis.
	Culled() bool
}

// base holds what every drawable kind shares.
type base struct {
	transform math.Transform
	color     math.Color
	layer     uint32
	visible   bool
	dirty     DirtyFlags
}

func newBase(position, rotation, scale math.Vec3, color math.Color, layer uint32, hidden bool) base {
	return base{
		transform: math.TransformFromPositionRotationScale(position, rotation, scale),
		color:     color,
		layer:     layer,
		visible:   !hidden,
		dirty:     DirtyAll,
	}
}

func (b *base) Position() math.Vec3 { return b.transform.Position }
func (b *base) Rotation() math.Vec3 { return b.transform.Rotation }
func (b *base) Scale() math.Vec3    { return b.transform.Scale }
func (b *base) Color() math.Color   { return b.color }
func (b *base) Layer() uint32       { return b.layer }
func (b *base) Visible() bool       { return b.visible }
func (b *base) Dirty() DirtyFlags   { return b.dirty }
func (b *base) IsDirty() bool       { return b.dirty != DirtyNone }

func (b *base) markDirty(flags DirtyFlags) {
	b.dirty |= flags
}

func (b *base) SetPosition(position math.Vec3) {
	b.transform.SetPosition(position)
	b.dirty |= DirtyTransform
}

func (b *base) Translate(delta math.Vec3) {
	b.transform.Translate(delta)
	b.dirty |= DirtyTransform
}

// SetRotation takes Euler angles in radians.
func (b *base) SetRotation(rotation math.Vec3) {
	b.transform.SetRotation(rotation)
	b.dirty |= DirtyTransform
}

func (b *base) Rotate(delta math.Vec3) {
	b.transform.Rotate(delta)
	b.dirty |= DirtyTransform
}

func (b *base) SetScale(scale math.Vec3) {
	b.transform.SetScale(scale)
	b.dirty |= DirtyTransform
}

func (b *base) SetColor(color math.Color) {
	b.color = color
	b.dirty |= DirtyMaterial
}

// SetLayer moves the object to another layer's batches.
func (b *base) SetLayer(layer uint32) {
	if b.layer == layer {
		return
	}
	b.layer = layer
	b.dirty |= DirtyContent
}

func (b *base) SetVisible(visible bool) {
	if b.visible == visible {
		return
	}
	b.visible = visible
	b.dirty |= DirtyVisibility
}

// resolveUV picks the atlas rectangle a material samples. Unknown labels fall
// back to the white pixel so the object still draws in its flat color, and
// report false so the object is resolved again once the label is packed.
func resolveUV(assets Assets, tex metadata.MaterialTexture) (metadata.UVRect, bool) {
	switch tex.Kind {
	case metadata.TextureFull:
		if r, ok := assets.Region(tex.Label); ok {
			return r.UV, true
		}
		core.LogDebug("texture %q is not packed, using white", tex.Label)
	case metadata.TexturePartial:
		r, err := assets.SubRegion(tex.Label, tex.Sub.X, tex.Sub.Y, tex.Sub.Width, tex.Sub.Height)
		if err == nil {
			return r.UV, true
		}
		core.LogDebug("texture %q: %s, using white", tex.Label, err)
	default:
		return assets.White().UV, true
	}
	return assets.White().UV, false
}

func zeroScale(s math.Vec3) bool {
	return s.X == 0 || s.Y == 0
}
