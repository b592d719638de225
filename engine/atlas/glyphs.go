package atlas

import (
	"fmt"
	"image"
	"sort"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// GlyphSet is a font packed into the atlas at one size. Glyph regions are
// kept current across atlas growth.
type GlyphSet struct {
	Label      string
	Data       metadata.FontData
	Glyphs     map[rune]*metadata.FontGlyph
	Kernings   map[[2]rune]float32
	FontBinary []byte

	face font.Face
}

func (gs *GlyphSet) Glyph(r rune) (*metadata.FontGlyph, bool) {
	g, ok := gs.Glyphs[r]
	return g, ok
}

// Kerning returns the horizontal adjustment between a and b.
func (gs *GlyphSet) Kerning(a, b rune) float32 {
	if k, ok := gs.Kernings[[2]rune{a, b}]; ok {
		return k
	}
	if gs.face != nil {
		k := float32(gs.face.Kern(a, b)) / 64
		gs.Kernings[[2]rune{a, b}] = k
		return k
	}
	return 0
}

// Runes returns the packed codepoints in ascending order.
func (gs *GlyphSet) Runes() []rune {
	out := make([]rune, 0, len(gs.Glyphs))
	for r := range gs.Glyphs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (gs *GlyphSet) refresh(width, height uint32) {
	for _, g := range gs.Glyphs {
		if !g.Region.Empty() {
			g.Region.Refresh(width, height)
		}
	}
}

// GlyphSet returns the font packed under label.
func (a *Atlas) GlyphSet(label string) (*GlyphSet, error) {
	gs, ok := a.glyphSets[label]
	if !ok {
		return nil, fmt.Errorf("font %q: %w", label, core.ErrUnknownFont)
	}
	return gs, nil
}

func glyphLabel(font string, r rune) string {
	return fmt.Sprintf("%s/%U", font, r)
}

// PackGlyphs rasterizes runes from a TrueType/OpenType font at size and packs
// them. Calling it again for the same label packs only the missing runes.
func (a *Atlas) PackGlyphs(label string, fontBinary []byte, size float32, runes []rune) (*GlyphSet, error) {
	gs, ok := a.glyphSets[label]
	if !ok {
		f, err := opentype.Parse(fontBinary)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %q: %w", label, err)
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create face for %q: %w", label, err)
		}
		m := face.Metrics()
		gs = &GlyphSet{
			Label: label,
			Data: metadata.FontData{
				Type:       metadata.FONT_TYPE_SYSTEM,
				Face:       label,
				Size:       size,
				LineHeight: float32(m.Height) / 64,
				Baseline:   float32(m.Ascent) / 64,
			},
			Glyphs:     make(map[rune]*metadata.FontGlyph),
			Kernings:   make(map[[2]rune]float32),
			FontBinary: fontBinary,
			face:       face,
		}
		a.glyphSets[label] = gs
	}

	for _, r := range runes {
		if _, ok := gs.Glyphs[r]; ok {
			continue
		}
		if err := a.packRune(gs, r); err != nil {
			return nil, err
		}
	}
	if space, ok := gs.Glyphs[' ']; ok {
		gs.Data.TabXAdvance = space.XAdvance * 4
	}
	return gs, nil
}

func (a *Atlas) packRune(gs *GlyphSet, r rune) error {
	bounds, advance, ok := gs.face.GlyphBounds(r)
	if !ok {
		core.LogDebug("font %s has no glyph for %U", gs.Label, r)
		return nil
	}
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	maxX, maxY := bounds.Max.X.Ceil(), bounds.Max.Y.Ceil()

	glyph := &metadata.FontGlyph{
		Codepoint: r,
		XOffset:   float32(minX),
		YOffset:   float32(minY),
		XAdvance:  float32(advance) / 64,
	}
	if maxX <= minX || maxY <= minY {
		gs.Glyphs[r] = glyph
		return nil
	}

	w, h := maxX-minX, maxY-minY
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: gs.face,
		Dot:  fixed.Point26_6{X: -fixed.I(minX), Y: -fixed.I(minY)},
	}
	d.DrawString(string(r))

	pixels := make([]byte, w*h*4)
	for i, alpha := range mask.Pix {
		pixels[i*4+0] = 255
		pixels[i*4+1] = 255
		pixels[i*4+2] = 255
		pixels[i*4+3] = alpha
	}

	region, err := a.PackPixels(glyphLabel(gs.Label, r), uint32(w), uint32(h), pixels)
	if err != nil {
		return fmt.Errorf("failed to pack glyph %U of %q: %w", r, gs.Label, err)
	}
	glyph.Width, glyph.Height = uint32(w), uint32(h)
	glyph.Region = region
	gs.Glyphs[r] = glyph
	return nil
}

type bitmapChar struct {
	id               rune
	x, y, w, h       int
	xOffset, yOffset int
	xAdvance         int
	page             int
}

// PackBitmapFont copies every glyph of a pre-rendered BMFont into the atlas.
func (a *Atlas) PackBitmapFont(label string, bf *bmfont.BitmapFont) (*GlyphSet, error) {
	if gs, ok := a.glyphSets[label]; ok {
		return gs, nil
	}
	desc := bf.Descriptor
	data := metadata.FontData{
		Type:       metadata.FONT_TYPE_BITMAP,
		Face:       desc.Info.Face,
		Size:       float32(desc.Info.Size),
		LineHeight: float32(desc.Common.LineHeight),
		Baseline:   float32(desc.Common.Base),
	}

	chars := make([]bitmapChar, 0, len(desc.Chars))
	for _, c := range desc.Chars {
		chars = append(chars, bitmapChar{
			id:       rune(c.ID),
			x:        int(c.X),
			y:        int(c.Y),
			w:        int(c.Width),
			h:        int(c.Height),
			xOffset:  int(c.XOffset),
			yOffset:  int(c.YOffset),
			xAdvance: int(c.XAdvance),
			page:     int(c.Page),
		})
	}
	pages := make(map[int]image.Image)
	for _, p := range desc.Pages {
		id := int(p.ID)
		pages[id] = bf.PageSheets[id]
	}
	kernings := make(map[[2]rune]float32, len(desc.Kerning))
	for pair, k := range desc.Kerning {
		kernings[[2]rune{rune(pair.First), rune(pair.Second)}] = float32(k.Amount)
	}
	return a.packBitmap(label, data, chars, pages, kernings)
}

func (a *Atlas) packBitmap(label string, data metadata.FontData, chars []bitmapChar, pages map[int]image.Image, kernings map[[2]rune]float32) (*GlyphSet, error) {
	sort.Slice(chars, func(i, j int) bool { return chars[i].id < chars[j].id })

	gs := &GlyphSet{
		Label:    label,
		Data:     data,
		Glyphs:   make(map[rune]*metadata.FontGlyph, len(chars)),
		Kernings: kernings,
	}
	a.glyphSets[label] = gs

	for _, c := range chars {
		glyph := &metadata.FontGlyph{
			Codepoint: c.id,
			XOffset:   float32(c.xOffset),
			YOffset:   float32(c.yOffset) - data.Baseline,
			XAdvance:  float32(c.xAdvance),
		}
		if c.w > 0 && c.h > 0 {
			sheet, ok := pages[c.page]
			if !ok || sheet == nil {
				delete(a.glyphSets, label)
				return nil, fmt.Errorf("glyph %U of %q references missing page %d: %w", c.id, label, c.page, core.ErrNotFound)
			}
			src := image.Rect(c.x, c.y, c.x+c.w, c.y+c.h)
			if !src.In(sheet.Bounds()) {
				delete(a.glyphSets, label)
				return nil, fmt.Errorf("glyph %U of %q outside page %d: %w", c.id, label, c.page, core.ErrOutOfBounds)
			}
			sub := image.NewRGBA(image.Rect(0, 0, c.w, c.h))
			for y := 0; y < c.h; y++ {
				for x := 0; x < c.w; x++ {
					sub.Set(x, y, sheet.At(c.x+x, c.y+y))
				}
			}
			region, err := a.PackImage(glyphLabel(label, c.id), metadata.NewImageResourceData(sub, false))
			if err != nil {
				delete(a.glyphSets, label)
				return nil, fmt.Errorf("failed to pack glyph %U of %q: %w", c.id, label, err)
			}
			glyph.Width, glyph.Height = uint32(c.w), uint32(c.h)
			glyph.Region = region
		}
		gs.Glyphs[c.id] = glyph
	}
	if space, ok := gs.Glyphs[' ']; ok {
		gs.Data.TabXAdvance = space.XAdvance * 4
	}

	core.LogDebug("bitmap font %s packed with %d glyphs", label, len(gs.Glyphs))
	return gs, nil
}
