package metadata

import "github.com/spaghettifunk/prism/engine/math"

type FontType int

const (
	FONT_TYPE_BITMAP FontType = iota
	FONT_TYPE_SYSTEM
)

/**
 * @brief Metrics of one packed glyph. Offsets are in pixels from the pen
 * position on the baseline to the top-left of the bitmap, y growing down.
 */
type FontGlyph struct {
	Codepoint rune
	Width     uint32
	Height    uint32
	XOffset   float32
	YOffset   float32
	XAdvance  float32
	Region    AtlasRegion
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     float32
}

/**
 * @brief Font-level metrics shared by all glyphs of a packed font.
 */
type FontData struct {
	Type       FontType
	Face       string
	Size       float32
	LineHeight float32
	Baseline   float32
	// TabXAdvance is the advance used for '\t'.
	TabXAdvance float32
}

/**
 * @brief The output of text layout: where one glyph's quad sits relative to
 * the text origin, in pixels, y growing down.
 */
type GlyphPlacement struct {
	Codepoint rune
	Position  math.Vec2
	Size      math.Vec2
	UV        UVRect
}
