package text

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// HarfbuzzShaper shapes each line with go-text/typesetting, picking up
// ligature positioning and GPOS kerning. Glyph bitmaps still come from the
// GlyphSet, looked up by the rune that starts each cluster. Glyph sets
// without font bytes (bitmap fonts) are handed to Fallback.
//
// HarfbuzzShaper is not safe for concurrent use.
type HarfbuzzShaper struct {
	Fallback Shaper

	shaper shaping.HarfbuzzShaper
	fonts  map[string]*font.Font
}

func NewHarfbuzzShaper() *HarfbuzzShaper {
	return &HarfbuzzShaper{
		Fallback: NewAdvanceShaper(),
		fonts:    make(map[string]*font.Font),
	}
}

func (s *HarfbuzzShaper) font(glyphs *atlas.GlyphSet) (*font.Font, error) {
	if f, ok := s.fonts[glyphs.Label]; ok {
		return f, nil
	}
	face, err := font.ParseTTF(bytes.NewReader(glyphs.FontBinary))
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q for shaping: %w", glyphs.Label, err)
	}
	s.fonts[glyphs.Label] = face.Font
	return face.Font, nil
}

func (s *HarfbuzzShaper) Layout(glyphs *atlas.GlyphSet, text string, size float32) ([]metadata.GlyphPlacement, error) {
	if glyphs == nil {
		return nil, fmt.Errorf("layout without glyph set: %w", core.ErrUnknownFont)
	}
	if len(glyphs.FontBinary) == 0 {
		return s.Fallback.Layout(glyphs, text, size)
	}
	f, err := s.font(glyphs)
	if err != nil {
		return nil, err
	}
	face := font.NewFace(f)

	if size <= 0 {
		size = glyphs.Data.Size
	}
	scale := scaleFor(glyphs, size)
	lineHeight := glyphs.Data.LineHeight * scale
	baseline := glyphs.Data.Baseline * scale
	tab := strings.Repeat(" ", 4)

	placements := make([]metadata.GlyphPlacement, 0, len(text))
	var top float32
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		runes := []rune(strings.ReplaceAll(line, "\t", tab))
		if len(runes) == 0 {
			top += lineHeight
			continue
		}
		out := s.shaper.Shape(shaping.Input{
			Text:      runes,
			RunStart:  0,
			RunEnd:    len(runes),
			Direction: di.DirectionLTR,
			Face:      face,
			Size:      fixed.Int26_6(size * 64),
			Script:    language.LookupScript(runes[0]),
			Language:  language.NewLanguage("en"),
		})

		var x float32
		for _, g := range out.Glyphs {
			idx := g.TextIndex()
			if idx < 0 || idx >= len(runes) {
				continue
			}
			fg, ok := glyphs.Glyph(runes[idx])
			if ok && fg.Width > 0 && fg.Height > 0 {
				p := place(fg, x+fixedToFloat(g.XOffset), top, baseline, scale)
				p.Position.Y -= fixedToFloat(g.YOffset)
				placements = append(placements, p)
			}
			x += fixedToFloat(g.Advance)
		}
		top += lineHeight
	}
	return placements, nil
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
