package retained

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// TextDesc describes a text object. Size is the pixel size to lay out at;
// zero uses the size the font was packed with.
type TextDesc struct {
	Font     string
	Content  string
	Size     float32
	Position math.Vec3
	Rotation math.Vec3
	Scale    math.Vec3
	Color    math.Color
	Layer    uint32
	Hidden   bool
}

// Text is a string drawn as one unit-rect instance per visible glyph.
type Text struct {
	base
	geometry *metadata.Geometry
	font     string
	content  string
	size     float32

	placements []metadata.GlyphPlacement
	records    []metadata.GlyphRecord
	// laidOutFont is the font the current records were built with.
	laidOutFont string
}

func newText(desc TextDesc, unitRect *metadata.Geometry) *Text {
	scale := desc.Scale
	if scale == (math.Vec3{}) {
		scale = math.NewVec3One()
	}
	if desc.Color == (math.Color{}) {
		desc.Color = math.ColorWhite
	}
	return &Text{
		base:     newBase(desc.Position, desc.Rotation, scale, desc.Color, desc.Layer, desc.Hidden),
		geometry: unitRect,
		font:     desc.Font,
		content:  desc.Content,
		size:     desc.Size,
	}
}

func (t *Text) GeometryID() uint32 { return t.geometry.ID }
func (t *Text) Font() string       { return t.font }
func (t *Text) Content() string    { return t.content }
func (t *Text) Size() float32      { return t.size }

// GlyphRecords returns one record per drawn glyph, valid after Prepare.
func (t *Text) GlyphRecords() []metadata.GlyphRecord { return t.records }

func (t *Text) SetContent(content string) {
	if t.content == content {
		return
	}
	t.content = content
	t.dirty |= DirtyContent
}

func (t *Text) SetFont(font string) {
	if t.font == font {
		return
	}
	t.font = font
	t.dirty |= DirtyContent
}

func (t *Text) SetSize(size float32) {
	if t.size == size {
		return
	}
	t.size = size
	t.dirty |= DirtyContent
}

func (t *Text) Prepare(assets Assets) bool {
	handled := t.dirty
	if handled == DirtyNone {
		return false
	}
	// visibility needs no layout, so it is settled even when layout fails
	t.dirty &^= DirtyVisibility

	if handled.Has(DirtyContent) {
		glyphs, err := assets.GlyphSet(t.font)
		if err != nil {
			core.LogWarn("text %q: %s", t.content, err)
			return t.dropRecords()
		}
		placements, err := assets.Shaper().Layout(glyphs, t.content, t.size)
		if err != nil {
			core.LogWarn("text %q: layout failed: %s", t.content, err)
			return t.dropRecords()
		}
		t.placements = placements
		t.records = make([]metadata.GlyphRecord, len(placements))
		t.laidOutFont = t.font
		// layout moved every glyph
		handled |= DirtyTransform | DirtyMaterial
	}

	if handled.Has(DirtyTransform) {
		s := t.transform.Scale
		scale := math.NewVec2(s.X, s.Y)
		for i, p := range t.placements {
			r := &t.records[i]
			r.Position = t.transform.Position
			r.Rotation = t.transform.Rotation
			r.Offset = p.Position.Mul(scale)
			r.Size = p.Size
			r.Scale = scale
		}
	}

	if handled.Has(DirtyMaterial) {
		glyphs, err := assets.GlyphSet(t.laidOutFont)
		color := t.color.Vec4()
		for i, p := range t.placements {
			uv := p.UV
			// UVs are re-read so atlas growth is picked up
			if err == nil {
				if g, ok := glyphs.Glyph(p.Codepoint); ok {
					uv = g.Region.UV
				}
			}
			t.placements[i].UV = uv
			t.records[i].Color = color
			t.records[i].UVOffset = uv.Offset()
			t.records[i].UVScale = uv.Scale()
		}
	}

	t.dirty &^= handled
	return handled.Any(DirtyTransform | DirtyMaterial | DirtyContent)
}

// dropRecords forgets the last layout so stale glyphs stop drawing while the
// content cannot be laid out. It reports whether there was anything to drop.
func (t *Text) dropRecords() bool {
	if len(t.records) == 0 {
		return false
	}
	t.placements = nil
	t.records = nil
	return true
}
