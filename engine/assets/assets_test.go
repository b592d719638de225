package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]metadata.ResourceType{
		"a.png":        metadata.ResourceTypeImage,
		"b.JPG":        metadata.ResourceTypeImage,
		"c.webp":       metadata.ResourceTypeImage,
		"font.fnt":     metadata.ResourceTypeBitmapFont,
		"font.ttf":     metadata.ResourceTypeSystemFont,
		"walk.yml":     metadata.ResourceTypeSpriteSheet,
		"notes.txt":    resourceTypeNone,
		"no_extension": resourceTypeNone,
	}
	for path, want := range tests {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}

func TestLoadUnknownType(t *testing.T) {
	am := NewAssetManager(t.TempDir(), nil)
	_, err := am.Load("readme.txt")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLoadRemembersAsset(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "hero.png"), 2, 2, color.NRGBA{R: 255, A: 255})

	am := NewAssetManager(dir, nil)
	res, err := am.Load("hero.png")
	require.NoError(t, err)
	assert.Equal(t, "hero", res.Name)

	info, ok := am.Asset("hero.png")
	require.True(t, ok)
	assert.Equal(t, "hero", info.Label)
	assert.Equal(t, metadata.ResourceTypeImage, info.Type)
}

func TestDecodeAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.png", "b.png", "c.png", "d.png"}
	for i, n := range names {
		writePNG(t, filepath.Join(dir, n), i+1, 1, color.NRGBA{A: 255})
	}

	jobs, err := systems.NewJobSystem(3, 8)
	require.NoError(t, err)
	defer jobs.Shutdown()

	am := NewAssetManager(dir, jobs)
	out, err := am.DecodeAll(names)
	require.NoError(t, err)
	require.Len(t, out, len(names))
	for i, res := range out {
		require.NotNil(t, res)
		img := res.Data.(*metadata.ImageResourceData)
		assert.Equal(t, uint32(i+1), img.Width)
	}
}

func TestDecodeAllJoinsErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ok.png"), 1, 1, color.NRGBA{A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0o644))

	jobs, err := systems.NewJobSystem(2, 4)
	require.NoError(t, err)
	defer jobs.Shutdown()

	am := NewAssetManager(dir, jobs)
	out, err := am.DecodeAll([]string{"ok.png", "broken.png", "missing.png"})
	require.Error(t, err)
	assert.NotNil(t, out[0])
	assert.Nil(t, out[1])
	assert.Nil(t, out[2])
}

func TestDrainCollapsesEvents(t *testing.T) {
	dir := t.TempDir()
	am := NewAssetManager(dir, nil)
	am.Track("player", "player.png")
	am.Track("enemy", "enemy.png")

	am.handleFileEvent(filepath.Join(am.resolve(dir), "player.png"))
	am.handleFileEvent(filepath.Join(am.resolve(dir), "player.png"))
	am.handleFileEvent(filepath.Join(am.resolve(dir), "enemy.png"))
	am.handleFileEvent(filepath.Join(am.resolve(dir), "untracked.png"))

	reqs := am.Drain()
	require.Len(t, reqs, 2)
	assert.Equal(t, "enemy", reqs[0].Label)
	assert.Equal(t, "player", reqs[1].Label)
	assert.Equal(t, metadata.ResourceTypeImage, reqs[1].Type)
	assert.Nil(t, am.Drain())
}

func TestWatchQueuesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.png")
	writePNG(t, path, 2, 2, color.NRGBA{G: 255, A: 255})

	am := NewAssetManager(dir, nil)
	_, err := am.Load(path)
	require.NoError(t, err)
	require.NoError(t, am.Watch())
	defer am.Close()

	writePNG(t, path, 2, 2, color.NRGBA{B: 255, A: 255})

	var reqs []ReloadRequest
	require.Eventually(t, func() bool {
		reqs = append(reqs, am.Drain()...)
		return len(reqs) > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "tile", reqs[0].Label)
}

func TestCloseStopsWatch(t *testing.T) {
	am := NewAssetManager(t.TempDir(), nil)
	require.NoError(t, am.Watch())
	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
	assert.ErrorIs(t, am.Watch(), ErrClosed)
}
