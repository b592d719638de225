package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/retained"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Application.TargetFPS = 0
	cfg.Application.Frames = 3
	cfg.Atlas.InitialSize = 64
	cfg.Assets.Dir = t.TempDir()
	cfg.Assets.Workers = 2
	return cfg
}

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newEngine(t *testing.T, g *Game, cfg *core.Config) *Engine {
	t.Helper()
	e, err := New(g, cfg)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Atlas.InitialSize = 100
	_, err := New(&Game{}, cfg)
	assert.ErrorIs(t, err, core.ErrInvalidSize)
}

func TestRunHonoursFrameBudget(t *testing.T) {
	var updates, renders int
	g := &Game{
		FnInitialize: func(e *Engine) error {
			e.Renderer().CreateMesh(retained.MeshDesc{})
			e.Renderer().CreateMesh(retained.MeshDesc{})
			return nil
		},
		FnUpdate: func(e *Engine, dt float64) error { updates++; return nil },
		FnRender: func(e *Engine, dt float64) error { renders++; return nil },
	}
	e := newEngine(t, g, testConfig(t))
	assert.Equal(t, EngineStageInitialized, e.Stage())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.FrameCount())
	assert.Equal(t, 3, updates)
	assert.Equal(t, 3, renders)
	assert.Equal(t, uint64(3), e.Metrics().TotalFrame)
	assert.Equal(t, uint64(1), e.Metrics().LastDraws)
	require.Len(t, e.Frontend().LastRecording().Draws, 1)
	assert.Equal(t, uint32(2), e.Frontend().LastRecording().Draws[0].InstanceCount)
	// nothing changed after the first frame
	assert.Equal(t, uint64(0), e.Metrics().LastWrites)
}

func TestQuitStopsTheLoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Application.Frames = 0
	g := &Game{
		FnUpdate: func(e *Engine, dt float64) error {
			if e.FrameCount() == 1 {
				e.Quit()
			}
			return nil
		},
	}
	e := newEngine(t, g, cfg)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(2), e.FrameCount())
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Application.Frames = 0
	e := newEngine(t, &Game{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, uint64(0), e.FrameCount())
}

func TestRunReturnsGameErrors(t *testing.T) {
	boom := errors.New("boom")
	g := &Game{FnUpdate: func(e *Engine, dt float64) error { return boom }}
	e := newEngine(t, g, testConfig(t))
	assert.ErrorIs(t, e.Run(context.Background()), boom)
}

func TestRunRequiresInitialize(t *testing.T) {
	e, err := New(&Game{}, testConfig(t))
	require.NoError(t, err)
	assert.Error(t, e.Run(context.Background()))
}

func TestShutdownCallsGameOnce(t *testing.T) {
	var calls int
	g := &Game{FnShutdown: func(e *Engine) error { calls++; return nil }}
	e := newEngine(t, g, testConfig(t))
	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, calls)
	assert.Equal(t, EngineStageShutdown, e.Stage())
}

func TestPackImageGeneratesLabel(t *testing.T) {
	e := newEngine(t, &Game{}, testConfig(t))

	label, err := e.PackImage("", encodePNG(t, 4, 4, color.NRGBA{R: 255, A: 255}))
	require.NoError(t, err)
	assert.NotEmpty(t, label)
	region, ok := e.Atlas().Region(label)
	require.True(t, ok)
	assert.Equal(t, uint32(4), region.Width)

	_, err = e.PackImage("bad", []byte("nope"))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestMeshPicksUpImagePackedLater(t *testing.T) {
	e := newEngine(t, &Game{}, testConfig(t))
	h := e.Renderer().CreateMesh(retained.MeshDesc{Material: metadata.NewTextured("cat", math.ColorWhite)})
	require.NoError(t, e.Frontend().DrawFrame())

	_, err := e.PackImage("cat", encodePNG(t, 8, 8, color.NRGBA{R: 255, A: 255}))
	require.NoError(t, err)
	require.NoError(t, e.Frontend().DrawFrame())

	region, ok := e.Atlas().Region("cat")
	require.True(t, ok)
	device, ok := e.Device().(*gpu.HeadlessDevice)
	require.True(t, ok)
	data := device.BufferContents(e.Renderer().InstanceBuffer().Buffer())
	rec := metadata.DecodeInstanceRecord(data[uint64(h.Index)*metadata.InstanceRecordSize:])
	assert.Equal(t, region.UV.Offset(), rec.UVOffset)
}

func TestAtlasGrowthFiresEvent(t *testing.T) {
	e := newEngine(t, &Game{}, testConfig(t))

	var grown atomic.Uint32
	e.Events().Register(core.EVENT_CODE_ATLAS_GROWN, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		grown.Store(data.Width)
		return true
	})

	_, err := e.PackImage("big", encodePNG(t, 62, 62, color.NRGBA{B: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, uint32(128), grown.Load())
}

func TestPackImageFilesKeepsOrder(t *testing.T) {
	cfg := testConfig(t)
	for _, n := range []string{"a.png", "b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.Dir, n), encodePNG(t, 2, 2, color.NRGBA{A: 255}), 0o644))
	}
	e := newEngine(t, &Game{}, cfg)

	labels, err := e.PackImageFiles([]string{"b.png", "a.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, labels)
}

func TestPackGlyphsAndText(t *testing.T) {
	e := newEngine(t, &Game{}, testConfig(t))

	gs, err := e.PackGlyphs("go", goregular.TTF, 16)
	require.NoError(t, err)
	_, ok := gs.Glyph('A')
	assert.True(t, ok)

	h := e.Renderer().CreateText(retained.TextDesc{Font: "go", Content: "hi"})
	require.NoError(t, e.Frontend().DrawFrame())
	txt, err := e.Renderer().Text(h)
	require.NoError(t, err)
	assert.Len(t, txt.GlyphRecords(), 2)
}

func TestPackSpriteSheet(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.Dir, "walk.png"), encodePNG(t, 16, 8, color.NRGBA{G: 255, A: 255}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.Dir, "walk.yaml"),
		[]byte("image: walk.png\nframes:\n  - {x: 0, y: 0, w: 8, h: 8}\n  - {x: 8, y: 0, w: 8, h: 8}\n"), 0o644))
	e := newEngine(t, &Game{}, cfg)

	label, sheet, err := e.PackSpriteSheet("walk.yaml")
	require.NoError(t, err)
	assert.Equal(t, "walk", label)
	assert.Len(t, sheet.Frames, 2)
	region, ok := e.Atlas().Region(label)
	require.True(t, ok)
	assert.Equal(t, uint32(16), region.Width)

	info, ok := e.Assets().Asset("walk.png")
	require.True(t, ok)
	assert.Equal(t, "walk", info.Label)
}

func TestChangedImageIsReloaded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.Watch = true
	path := filepath.Join(cfg.Assets.Dir, "tile.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 2, 2, color.NRGBA{R: 255, A: 255}), 0o644))
	e := newEngine(t, &Game{}, cfg)

	label, err := e.PackImageFile("tile.png")
	require.NoError(t, err)

	var reloaded atomic.Bool
	e.Events().Register(core.EVENT_CODE_ASSET_RELOADED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		if data.Label == label {
			reloaded.Store(true)
		}
		return true
	})

	require.NoError(t, os.WriteFile(path, encodePNG(t, 2, 2, color.NRGBA{B: 255, A: 255}), 0o644))
	require.Eventually(t, func() bool {
		e.applyReloads()
		return reloaded.Load()
	}, 2*time.Second, 20*time.Millisecond)

	px, err := e.Atlas().ReadRegion(label)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255}, px[:4])
}
