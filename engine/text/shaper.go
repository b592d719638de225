// Package text turns strings into glyph placements over a packed GlyphSet.
package text

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Shaper lays text out against a glyph set. Placements are in pixels relative
// to the text origin (top-left of the first line), y growing down.
type Shaper interface {
	Layout(glyphs *atlas.GlyphSet, text string, size float32) ([]metadata.GlyphPlacement, error)
}

// AdvanceShaper places glyphs using their advances and pair kerning only.
type AdvanceShaper struct {
	// Fallback is drawn for runes missing from the set; zero skips them.
	Fallback rune
}

func NewAdvanceShaper() *AdvanceShaper {
	return &AdvanceShaper{Fallback: '?'}
}

func scaleFor(glyphs *atlas.GlyphSet, size float32) float32 {
	if size <= 0 || glyphs.Data.Size <= 0 {
		return 1
	}
	return size / glyphs.Data.Size
}

// place returns the quad for g with the pen at x on the line starting at top.
func place(g *metadata.FontGlyph, x, top, baseline, scale float32) metadata.GlyphPlacement {
	return metadata.GlyphPlacement{
		Codepoint: g.Codepoint,
		Position:  math.NewVec2(x+g.XOffset*scale, top+baseline+g.YOffset*scale),
		Size:      math.NewVec2(float32(g.Width)*scale, float32(g.Height)*scale),
		UV:        g.Region.UV,
	}
}

func (s *AdvanceShaper) Layout(glyphs *atlas.GlyphSet, text string, size float32) ([]metadata.GlyphPlacement, error) {
	if glyphs == nil {
		return nil, fmt.Errorf("layout without glyph set: %w", core.ErrUnknownFont)
	}
	scale := scaleFor(glyphs, size)
	lineHeight := glyphs.Data.LineHeight * scale
	baseline := glyphs.Data.Baseline * scale

	placements := make([]metadata.GlyphPlacement, 0, len(text))
	var x, top float32
	var prev rune = -1

	for _, r := range text {
		switch r {
		case '\r':
			continue
		case '\n':
			x, top, prev = 0, top+lineHeight, -1
			continue
		case '\t':
			x += glyphs.Data.TabXAdvance * scale
			prev = -1
			continue
		}

		g, ok := glyphs.Glyph(r)
		if !ok && s.Fallback != 0 {
			g, ok = glyphs.Glyph(s.Fallback)
		}
		if !ok {
			core.LogDebug("font %s has no glyph for %U, skipped", glyphs.Label, r)
			prev = -1
			continue
		}

		if prev >= 0 {
			x += glyphs.Kerning(prev, g.Codepoint) * scale
		}
		if g.Width > 0 && g.Height > 0 {
			placements = append(placements, place(g, x, top, baseline, scale))
		}
		x += g.XAdvance * scale
		prev = g.Codepoint
	}
	return placements, nil
}

// Bounds returns the width and height covered by placements.
func Bounds(placements []metadata.GlyphPlacement) (float32, float32) {
	var w, h float32
	for _, p := range placements {
		w = max(w, p.Position.X+p.Size.X)
		h = max(h, p.Position.Y+p.Size.Y)
	}
	return w, h
}
