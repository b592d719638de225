package retained

import (
	"image"
	"testing"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

type fixture struct {
	device     *gpu.HeadlessDevice
	atlas      *atlas.Atlas
	geometries *systems.GeometrySystem
	renderer   *Renderer
	pass       *gpu.RecordingPass
}

func newFixture(t *testing.T, config RendererConfig) *fixture {
	t.Helper()
	d := gpu.NewHeadlessDevice(4096)
	a, err := atlas.NewAtlas(d, atlas.AtlasConfig{InitialSize: 64, MaxSize: 1024, Padding: 2})
	require.NoError(t, err)
	gs, err := systems.NewGeometrySystem(systems.GeometrySystemConfig{MaxGeometryCount: 32}, d)
	require.NoError(t, err)
	r, err := NewRenderer(d, a, gs, nil, config)
	require.NoError(t, err)
	return &fixture{device: d, atlas: a, geometries: gs, renderer: r, pass: gpu.NewRecordingPass()}
}

func (f *fixture) frame(t *testing.T) FrameStats {
	t.Helper()
	f.pass.Reset()
	require.NoError(t, f.renderer.SynchronizeAndDraw(f.pass))
	return f.renderer.Stats()
}

func (f *fixture) instanceAt(index uint32) metadata.InstanceRecord {
	data := f.device.BufferContents(f.renderer.InstanceBuffer().Buffer())
	return metadata.DecodeInstanceRecord(data[uint64(index)*metadata.InstanceRecordSize:])
}

func (f *fixture) groupedAt(slot uint32) metadata.InstanceRecord {
	data := f.device.BufferContents(f.renderer.GroupedBuffer().Buffer())
	return metadata.DecodeInstanceRecord(data[uint64(slot)*metadata.InstanceRecordSize:])
}

func TestEmptyArenaDoesNothing(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	stats := f.frame(t)
	assert.Zero(t, stats.Writes)
	assert.Zero(t, stats.Draws)
	assert.Empty(t, f.pass.Draws)
}

func TestBatchingOneDrawPerGeometry(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	circle, err := f.geometries.Acquire(systems.GenerateCircleConfig(1, 16))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.renderer.CreateMesh(MeshDesc{Position: math.NewVec3(float32(i), 0, 0), Material: metadata.NewUntextured(math.ColorRed)})
	}
	for i := 0; i < 2; i++ {
		f.renderer.CreateMesh(MeshDesc{Geometry: circle, Material: metadata.NewUntextured(math.ColorBlue)})
	}

	stats := f.frame(t)
	require.Len(t, f.pass.Draws, 2)
	assert.Equal(t, 2, stats.Groups)
	assert.True(t, stats.Rebuilt)

	unit := f.geometries.UnitRect()
	rects, circles := f.pass.Draws[0], f.pass.Draws[1]
	assert.Equal(t, unit.IndexBuffer, rects.IndexBuffer)
	assert.Equal(t, unit.IndexCount, rects.IndexCount)
	assert.Equal(t, uint32(3), rects.InstanceCount)
	assert.Equal(t, uint32(0), rects.FirstInstance)

	assert.Equal(t, circle.IndexBuffer, circles.IndexBuffer)
	assert.Equal(t, circle.IndexCount, circles.IndexCount)
	assert.Equal(t, uint32(2), circles.InstanceCount)
	assert.Equal(t, uint32(3), circles.FirstInstance)

	for _, d := range f.pass.Draws {
		assert.Equal(t, f.renderer.GroupedBuffer().Buffer(), d.InstanceBuffer)
	}
	// grouped records follow arena order within a geometry
	assert.Equal(t, float32(2), f.groupedAt(2).Position.X)
}

func TestSetPositionWritesOneRecord(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	f.renderer.CreateMesh(MeshDesc{})
	h := f.renderer.CreateMesh(MeshDesc{})
	f.frame(t)

	m, err := f.renderer.Mesh(h)
	require.NoError(t, err)
	m.SetPosition(math.NewVec3(10, 10, 0))

	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	assert.Equal(t, uint64(metadata.InstanceRecordSize), stats.BytesWritten)
	assert.Equal(t, 1, stats.Copies)
	assert.False(t, stats.Rebuilt)

	assert.Equal(t, math.NewVec3(10, 10, 0), f.instanceAt(h.Index).Position)
	slot, ok := f.renderer.Slot(h)
	require.True(t, ok)
	assert.Equal(t, math.NewVec3(10, 10, 0), f.groupedAt(slot).Position)
	assert.Len(t, f.pass.Draws, 1)
}

func TestDirtyConvergence(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	h := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewUntextured(math.ColorGreen)})
	f.frame(t)

	m, err := f.renderer.Mesh(h)
	require.NoError(t, err)
	assert.False(t, m.IsDirty())

	stats := f.frame(t)
	assert.Zero(t, stats.Writes)
	assert.Zero(t, stats.Copies)
	assert.False(t, stats.Rebuilt)
	assert.Equal(t, 1, stats.Draws)
}

func TestStaleHandles(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	h := f.renderer.CreateMesh(MeshDesc{})
	require.NoError(t, f.renderer.Remove(h))

	_, err := f.renderer.Mesh(h)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.renderer.Remove(h), core.ErrNotFound)
	_, err = f.renderer.Get(containers.Handle{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	reused := f.renderer.CreateMesh(MeshDesc{})
	assert.Equal(t, h.Index, reused.Index)
	_, err = f.renderer.Mesh(h)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.renderer.Mesh(reused)
	assert.NoError(t, err)

	// right slot, wrong kind
	_, err = f.renderer.Text(reused)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemoveDropsFromBatch(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	a := f.renderer.CreateMesh(MeshDesc{})
	f.renderer.CreateMesh(MeshDesc{})
	f.frame(t)
	require.Equal(t, uint32(2), f.pass.Draws[0].InstanceCount)

	require.NoError(t, f.renderer.Remove(a))
	stats := f.frame(t)
	assert.True(t, stats.Rebuilt)
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, uint32(1), f.pass.Draws[0].InstanceCount)
}

func TestDegenerateAndZeroScaleSkipped(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	line, err := f.geometries.Acquire(&metadata.GeometryConfig{
		Name: "line",
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(0, 0, 0)},
			{Position: math.NewVec3(1, 0, 0)},
			{Position: math.NewVec3(2, 0, 0)},
		},
		Indices: []uint32{0, 1, 2},
	})
	require.NoError(t, err)

	f.renderer.CreateMesh(MeshDesc{Geometry: line})
	f.renderer.CreateMesh(MeshDesc{Scale: math.NewVec3(0, 1, 1)})
	f.renderer.CreateMesh(MeshDesc{})

	f.frame(t)
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, uint32(1), f.pass.Draws[0].InstanceCount)
}

func TestVisibilityRegroups(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	h := f.renderer.CreateMesh(MeshDesc{})
	f.frame(t)

	m, err := f.renderer.Mesh(h)
	require.NoError(t, err)
	m.SetVisible(false)
	stats := f.frame(t)
	assert.True(t, stats.Rebuilt)
	assert.Empty(t, f.pass.Draws)

	m.SetVisible(true)
	f.frame(t)
	assert.Len(t, f.pass.Draws, 1)
}

func TestInstanceBufferResizeRewritesEverything(t *testing.T) {
	f := newFixture(t, RendererConfig{InstanceCapacity: 2})
	f.renderer.CreateMesh(MeshDesc{Position: math.NewVec3(1, 0, 0)})
	f.renderer.CreateMesh(MeshDesc{Position: math.NewVec3(2, 0, 0)})
	f.frame(t)
	require.Equal(t, uint64(2*metadata.InstanceRecordSize), f.renderer.InstanceBuffer().Capacity())

	f.renderer.CreateMesh(MeshDesc{Position: math.NewVec3(3, 0, 0)})
	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	assert.Equal(t, uint64(3*metadata.InstanceRecordSize), stats.BytesWritten)
	assert.True(t, stats.Rebuilt)

	for i := uint32(0); i < 3; i++ {
		assert.Equal(t, float32(i+1), f.instanceAt(i).Position.X)
		assert.Equal(t, float32(i+1), f.groupedAt(i).Position.X)
	}
	assert.Equal(t, uint32(3), f.pass.Draws[0].InstanceCount)
}

func TestAtlasGrowthRefreshesUVs(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackPixels("a", 8, 8, make([]byte, 8*8*4))
	require.NoError(t, err)
	h := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewTextured("a", math.ColorWhite)})
	f.frame(t)
	assert.InDelta(t, 8.0/64, f.instanceAt(h.Index).UVScale.X, 1e-6)

	_, err = f.atlas.PackPixels("big", 60, 60, make([]byte, 60*60*4))
	require.NoError(t, err)
	w, _ := f.atlas.Size()
	require.Equal(t, uint32(128), w)

	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	assert.InDelta(t, 8.0/128, f.instanceAt(h.Index).UVScale.X, 1e-6)
}

func TestUnknownTextureFallsBackToWhite(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	h := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewTextured("missing", math.ColorWhite)})
	f.frame(t)

	white := f.atlas.White().UV
	rec := f.instanceAt(h.Index)
	assert.Equal(t, white.Offset(), rec.UVOffset)
	assert.Equal(t, white.Scale(), rec.UVScale)
}

func TestInvalidateTextureAfterReplace(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackPixels("hero", 8, 8, make([]byte, 8*8*4))
	require.NoError(t, err)
	h := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewTextured("hero", math.ColorWhite)})
	f.frame(t)

	_, err = f.atlas.Replace("hero", metadata.NewImageResourceData(image.NewRGBA(image.Rect(0, 0, 16, 16)), false))
	require.NoError(t, err)
	f.renderer.InvalidateTexture("hero")

	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	region, ok := f.atlas.Region("hero")
	require.True(t, ok)
	assert.Equal(t, region.UV.Scale(), f.instanceAt(h.Index).UVScale)
}

func TestSpriteAnimation(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackPixels("walk", 32, 16, make([]byte, 32*16*4))
	require.NoError(t, err)
	h := f.renderer.CreateSprite(SpriteDesc{
		Sheet: "walk",
		Frames: []metadata.SpriteFrame{
			{X: 0, Y: 0, Width: 16, Height: 16, Duration: 0.1},
			{X: 16, Y: 0, Width: 16, Height: 16, Duration: 0.1},
		},
	})
	f.frame(t)

	first := f.instanceAt(h.Index)
	assert.Equal(t, math.NewVec3(16, 16, 1), first.Scale)

	f.renderer.Animate(0.05)
	stats := f.frame(t)
	assert.Zero(t, stats.Writes)

	f.renderer.Animate(0.1)
	s, err := f.renderer.Sprite(h)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Frame())

	stats = f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	w, _ := f.atlas.Size()
	second := f.instanceAt(h.Index)
	assert.InDelta(t, first.UVOffset.X+16/float32(w), second.UVOffset.X, 1e-6)

	// wraps back to the first frame
	f.renderer.Animate(0.1)
	assert.Equal(t, 0, s.Frame())
}

func TestTextBatchesPerFont(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackGlyphs("regular", goregular.TTF, 16, []rune("Hi"))
	require.NoError(t, err)
	_, err = f.atlas.PackGlyphs("mono", gomono.TTF, 16, []rune("Hi"))
	require.NoError(t, err)

	f.renderer.CreateText(TextDesc{Font: "regular", Content: "Hi"})
	f.renderer.CreateText(TextDesc{Font: "mono", Content: "Hi"})
	h := f.renderer.CreateText(TextDesc{Font: "regular", Content: "H"})

	stats := f.frame(t)
	require.Len(t, f.pass.Draws, 2)
	assert.Equal(t, 1, stats.Writes)
	assert.Equal(t, uint64(5*metadata.GlyphRecordSize), stats.BytesWritten)

	mono, regular := f.pass.Draws[0], f.pass.Draws[1]
	assert.Equal(t, uint32(2), mono.InstanceCount)
	assert.Equal(t, uint32(0), mono.FirstInstance)
	assert.Equal(t, uint32(3), regular.InstanceCount)
	assert.Equal(t, uint32(2), regular.FirstInstance)
	assert.Equal(t, f.renderer.GlyphBuffer().Buffer(), regular.InstanceBuffer)

	txt, err := f.renderer.Text(h)
	require.NoError(t, err)
	require.Len(t, txt.GlyphRecords(), 1)

	txt.SetContent("HiHi")
	f.frame(t)
	require.Len(t, f.pass.Draws, 2)
	assert.Equal(t, uint32(6), f.pass.Draws[1].InstanceCount)

	stats = f.frame(t)
	assert.Zero(t, stats.Writes)
}

func TestTextWithUnknownFontStaysDirty(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	h := f.renderer.CreateText(TextDesc{Font: "later", Content: "Hi"})

	f.frame(t)
	assert.Empty(t, f.pass.Draws)
	txt, err := f.renderer.Text(h)
	require.NoError(t, err)
	assert.True(t, txt.Dirty().Has(DirtyContent))

	_, err = f.atlas.PackGlyphs("later", goregular.TTF, 16, []rune("Hi"))
	require.NoError(t, err)
	f.frame(t)
	assert.False(t, txt.IsDirty())
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, uint32(2), f.pass.Draws[0].InstanceCount)
}

func TestTextRecordsFollowTransform(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackGlyphs("regular", goregular.TTF, 16, []rune("Hi"))
	require.NoError(t, err)
	h := f.renderer.CreateText(TextDesc{Font: "regular", Content: "Hi", Scale: math.NewVec3(2, 2, 1)})
	f.frame(t)

	txt, err := f.renderer.Text(h)
	require.NoError(t, err)
	records := txt.GlyphRecords()
	require.Len(t, records, 2)
	assert.Equal(t, math.NewVec2(2, 2), records[0].Scale)
	assert.Greater(t, records[1].Offset.X, records[0].Offset.X)

	txt.SetPosition(math.NewVec3(5, 6, 0))
	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	for _, r := range txt.GlyphRecords() {
		assert.Equal(t, math.NewVec3(5, 6, 0), r.Position)
	}
}

func TestDirtyFlagsString(t *testing.T) {
	assert.Equal(t, "clean", DirtyNone.String())
	assert.Equal(t, "transform|visibility", (DirtyTransform | DirtyVisibility).String())
}

func TestTexturePackedAfterObjectIsPickedUp(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	mesh := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewTextured("cat", math.ColorWhite)})
	sprite := f.renderer.CreateSprite(SpriteDesc{Sheet: "cat"})
	f.frame(t)

	white := f.atlas.White().UV
	assert.Equal(t, white.Offset(), f.instanceAt(mesh.Index).UVOffset)
	assert.Equal(t, math.NewVec3(1, 1, 1), f.instanceAt(sprite.Index).Scale)

	cat, err := f.atlas.PackPixels("cat", 8, 8, make([]byte, 8*8*4))
	require.NoError(t, err)
	f.frame(t)

	assert.Equal(t, cat.UV.Offset(), f.instanceAt(mesh.Index).UVOffset)
	assert.Equal(t, cat.UV.Scale(), f.instanceAt(mesh.Index).UVScale)
	assert.Equal(t, cat.UV.Offset(), f.instanceAt(sprite.Index).UVOffset)
	assert.Equal(t, math.NewVec3(8, 8, 1), f.instanceAt(sprite.Index).Scale)
	slot, ok := f.renderer.Slot(mesh)
	require.True(t, ok)
	assert.Equal(t, cat.UV.Offset(), f.groupedAt(slot).UVOffset)

	// resolved objects ignore unrelated labels
	_, err = f.atlas.PackPixels("dog", 4, 4, make([]byte, 4*4*4))
	require.NoError(t, err)
	stats := f.frame(t)
	assert.Zero(t, stats.Writes)
}

func TestRepackedRegionIsPickedUp(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackPixels("hero", 8, 8, make([]byte, 8*8*4))
	require.NoError(t, err)
	h := f.renderer.CreateMesh(MeshDesc{Material: metadata.NewTextured("hero", math.ColorWhite)})
	f.frame(t)

	_, err = f.atlas.Replace("hero", metadata.NewImageResourceData(image.NewRGBA(image.Rect(0, 0, 16, 16)), false))
	require.NoError(t, err)
	stats := f.frame(t)
	assert.Equal(t, 1, stats.Writes)
	region, ok := f.atlas.Region("hero")
	require.True(t, ok)
	assert.Equal(t, region.UV.Offset(), f.instanceAt(h.Index).UVOffset)
}

func TestMeshHoldsItsGeometry(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	circle, err := f.geometries.Acquire(systems.GenerateCircleConfig(1, 16))
	require.NoError(t, err)
	h := f.renderer.CreateMesh(MeshDesc{Geometry: circle})
	assert.Equal(t, uint64(2), f.geometries.References(circle.ID))

	// the caller lets go, the mesh keeps drawing it
	f.geometries.Release(circle)
	f.frame(t)
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, circle.VertexBuffer, f.pass.Draws[0].VertexBuffer)
	assert.NotNil(t, f.device.BufferContents(f.pass.Draws[0].VertexBuffer))

	require.NoError(t, f.renderer.Remove(h))
	_, ok := f.geometries.Get(circle.ID)
	assert.False(t, ok)
}

func TestMeshRejectsReleasedGeometry(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	circle, err := f.geometries.Acquire(systems.GenerateCircleConfig(1, 16))
	require.NoError(t, err)
	f.geometries.Release(circle)

	// the freed id goes to the next registration
	cube, err := f.geometries.Acquire(systems.GenerateCubeConfig(1, 1, 1, 1, 1, "cube"))
	require.NoError(t, err)
	require.Equal(t, circle.ID, cube.ID)

	h := f.renderer.CreateMesh(MeshDesc{Geometry: circle})
	m, err := f.renderer.Mesh(h)
	require.NoError(t, err)
	assert.Same(t, f.geometries.UnitRect(), m.Geometry())
	assert.Equal(t, uint64(1), f.geometries.References(cube.ID))

	assert.ErrorIs(t, m.SetGeometry(circle), core.ErrNotFound)
	assert.Equal(t, uint64(1), f.geometries.References(cube.ID))
	require.NoError(t, m.SetGeometry(cube))
	assert.Equal(t, uint64(2), f.geometries.References(cube.ID))
	require.NoError(t, m.SetGeometry(nil))
	assert.Equal(t, uint64(1), f.geometries.References(cube.ID))
}

func TestDestroyReleasesMeshGeometry(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	circle, err := f.geometries.Acquire(systems.GenerateCircleConfig(1, 8))
	require.NoError(t, err)
	f.renderer.CreateMesh(MeshDesc{Geometry: circle})
	f.renderer.CreateMesh(MeshDesc{Geometry: circle})
	require.Equal(t, uint64(3), f.geometries.References(circle.ID))

	f.renderer.Destroy()
	assert.Equal(t, uint64(1), f.geometries.References(circle.ID))
	assert.Zero(t, f.renderer.Len())
}

func TestLayersDrawInOrder(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackGlyphs("regular", goregular.TTF, 16, []rune("Hi"))
	require.NoError(t, err)

	f.renderer.CreateText(TextDesc{Font: "regular", Content: "Hi"})
	top := f.renderer.CreateMesh(MeshDesc{Layer: 2})
	f.renderer.CreateMesh(MeshDesc{Layer: 1})
	f.renderer.CreateMesh(MeshDesc{Layer: 1})
	f.renderer.CreateText(TextDesc{Font: "regular", Content: "H", Layer: 1})

	f.frame(t)
	draws := f.pass.Draws
	require.Len(t, draws, 4)
	glyphs, grouped := f.renderer.GlyphBuffer().Buffer(), f.renderer.GroupedBuffer().Buffer()

	// layer 0 text, layer 1 meshes then text, layer 2 mesh
	assert.Equal(t, glyphs, draws[0].InstanceBuffer)
	assert.Equal(t, uint32(2), draws[0].InstanceCount)
	assert.Equal(t, grouped, draws[1].InstanceBuffer)
	assert.Equal(t, uint32(2), draws[1].InstanceCount)
	assert.Equal(t, uint32(0), draws[1].FirstInstance)
	assert.Equal(t, glyphs, draws[2].InstanceBuffer)
	assert.Equal(t, uint32(1), draws[2].InstanceCount)
	assert.Equal(t, uint32(2), draws[2].FirstInstance)
	assert.Equal(t, grouped, draws[3].InstanceBuffer)
	assert.Equal(t, uint32(1), draws[3].InstanceCount)
	assert.Equal(t, uint32(2), draws[3].FirstInstance)

	// moving the top mesh down joins the layer 1 batch
	m, err := f.renderer.Mesh(top)
	require.NoError(t, err)
	m.SetLayer(1)
	stats := f.frame(t)
	assert.True(t, stats.Rebuilt)
	require.Len(t, f.pass.Draws, 3)
	assert.Equal(t, uint32(3), f.pass.Draws[1].InstanceCount)
}

func TestDebugTextLastsOneFrame(t *testing.T) {
	f := newFixture(t, RendererConfig{DebugFont: "dbg"})
	_, err := f.atlas.PackGlyphs("dbg", goregular.TTF, 12, []rune("fps0123456789"))
	require.NoError(t, err)

	f.renderer.DrawDebugText(0, "fps60", math.NewVec2(10.2, 20))
	f.frame(t)
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, uint32(5), f.pass.Draws[0].InstanceCount)

	// the same rounded position updates the one text
	f.renderer.DrawDebugText(0, "fps59", math.NewVec2(9.8, 20))
	f.frame(t)
	assert.Equal(t, 1, f.renderer.Len())
	require.Len(t, f.pass.Draws, 1)

	// not drawn again, so hidden
	f.frame(t)
	assert.Empty(t, f.pass.Draws)
	assert.Equal(t, 1, f.renderer.Len())

	f.renderer.DrawDebugText(0, "fps59", math.NewVec2(10, 20))
	f.frame(t)
	require.Len(t, f.pass.Draws, 1)
}

func TestTextVisibilitySettledWhileFontMissing(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	_, err := f.atlas.PackGlyphs("regular", goregular.TTF, 16, []rune("Hi"))
	require.NoError(t, err)
	h := f.renderer.CreateText(TextDesc{Font: "regular", Content: "Hi"})
	f.frame(t)
	require.Len(t, f.pass.Draws, 1)

	txt, err := f.renderer.Text(h)
	require.NoError(t, err)

	// the old glyphs stop drawing once the new font fails to lay out
	txt.SetFont("later")
	f.frame(t)
	assert.Empty(t, f.pass.Draws)

	txt.SetVisible(false)
	f.frame(t)
	assert.False(t, txt.Dirty().Has(DirtyVisibility))
	assert.True(t, txt.Dirty().Has(DirtyContent))

	_, err = f.atlas.PackGlyphs("later", gomono.TTF, 16, []rune("Hi"))
	require.NoError(t, err)
	txt.SetVisible(true)
	f.frame(t)
	require.Len(t, f.pass.Draws, 1)
	assert.Equal(t, uint32(2), f.pass.Draws[0].InstanceCount)
}
