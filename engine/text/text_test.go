package text

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func packedFont(t *testing.T) *atlas.GlyphSet {
	t.Helper()
	a, err := atlas.NewAtlas(gpu.NewHeadlessDevice(4096), atlas.AtlasConfig{InitialSize: 256, MaxSize: 2048, Padding: 2})
	require.NoError(t, err)
	gs, err := a.PackGlyphs("goregular", goregular.TTF, 20, []rune("ABHWelo? \t"))
	require.NoError(t, err)
	return gs
}

func TestAdvanceShaperSingleLine(t *testing.T) {
	gs := packedFont(t)
	s := NewAdvanceShaper()

	out, err := s.Layout(gs, "AB", 20)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 'A', out[0].Codepoint)
	assert.Equal(t, 'B', out[1].Codepoint)
	assert.Greater(t, out[1].Position.X, out[0].Position.X)
	assert.Equal(t, gs.Glyphs['A'].Region.UV, out[0].UV)

	// glyph tops sit above the baseline
	assert.Less(t, out[0].Position.Y, gs.Data.Baseline)
}

func TestAdvanceShaperSkipsBlanksAndBreaksLines(t *testing.T) {
	gs := packedFont(t)
	s := NewAdvanceShaper()

	out, err := s.Layout(gs, "H H\nH", 20)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, out[0].Position.Y, out[1].Position.Y)
	assert.InDelta(t, out[0].Position.Y+gs.Data.LineHeight, out[2].Position.Y, 1e-4)
	assert.Equal(t, out[0].Position.X, out[2].Position.X)

	tabbed, err := s.Layout(gs, "\tH", 20)
	require.NoError(t, err)
	require.Len(t, tabbed, 1)
	assert.InDelta(t, out[0].Position.X+gs.Data.TabXAdvance, tabbed[0].Position.X, 1e-4)
}

func TestAdvanceShaperScalesWithSize(t *testing.T) {
	gs := packedFont(t)
	s := NewAdvanceShaper()

	base, err := s.Layout(gs, "W", 20)
	require.NoError(t, err)
	double, err := s.Layout(gs, "W", 40)
	require.NoError(t, err)
	assert.InDelta(t, base[0].Size.X*2, double[0].Size.X, 1e-4)

	w, h := Bounds(double)
	assert.Greater(t, w, float32(0))
	assert.Greater(t, h, float32(0))
}

func TestAdvanceShaperFallback(t *testing.T) {
	gs := packedFont(t)

	out, err := NewAdvanceShaper().Layout(gs, "Z", 20)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, '?', out[0].Codepoint)

	out, err = (&AdvanceShaper{}).Layout(gs, "Z", 20)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = NewAdvanceShaper().Layout(nil, "A", 20)
	assert.ErrorIs(t, err, core.ErrUnknownFont)
}

func TestHarfbuzzShaperLayout(t *testing.T) {
	gs := packedFont(t)
	s := NewHarfbuzzShaper()

	out, err := s.Layout(gs, "Hello", 20)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i].Position.X, out[i-1].Position.X)
	}

	lines, err := s.Layout(gs, "A\nA", 20)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.InDelta(t, lines[0].Position.Y+gs.Data.LineHeight, lines[1].Position.Y, 1e-4)
}

func TestHarfbuzzShaperFallsBackForBitmapFonts(t *testing.T) {
	gs := packedFont(t)
	bitmap := *gs
	bitmap.FontBinary = nil

	hb, err := NewHarfbuzzShaper().Layout(&bitmap, "AB", 20)
	require.NoError(t, err)
	adv, err := NewAdvanceShaper().Layout(&bitmap, "AB", 20)
	require.NoError(t, err)
	assert.Equal(t, adv, hb)
}
