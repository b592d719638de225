package retained

import (
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
	"github.com/spaghettifunk/prism/engine/text"
)

type RendererConfig struct {
	// InstanceCapacity is the number of objects the instance buffers start with.
	InstanceCapacity uint32
	// GlyphCapacity is the number of glyph records the text buffer starts with.
	GlyphCapacity uint32
	// DebugFont is the font label DrawDebugText lays out with.
	DebugFont string
}

// FrameStats describes the work of the last Synchronize and Draw.
type FrameStats struct {
	Writes       int
	BytesWritten uint64
	Copies       int
	Draws        int
	Instances    int
	Groups       int
	// Rebuilt is set when the grouped instance buffer was rebuilt.
	Rebuilt bool
}

// batch is one instanced draw: count records starting at first.
type batch struct {
	layer    uint32
	geometry *metadata.Geometry
	first    uint32
	count    uint32
}

type fontBatch struct {
	layer uint32
	font  string
	first uint32
	count uint32
}

// debugKey identifies a debug text by layer and rounded position.
type debugKey struct {
	layer uint32
	x, y  int32
}

type rendererAssets struct {
	*atlas.Atlas
	shaper text.Shaper
}

func (a rendererAssets) Shaper() text.Shaper { return a.shaper }

// Renderer owns every live drawable and keeps their GPU records in sync.
type Renderer struct {
	device     gpu.Device
	atlas      *atlas.Atlas
	geometries *systems.GeometrySystem
	assets     rendererAssets
	objects    *containers.Arena[Drawable]

	// instances holds one record per arena slot, at index*stride.
	instances *gpu.GrowableBuffer
	// scratch holds the visible records compacted and grouped by geometry.
	scratch *gpu.GrowableBuffer
	glyphs  *gpu.GrowableBuffer

	groups []batch
	slots  map[uint32]uint32
	fonts  []fontBatch

	debugFont  string
	debugTexts map[debugKey]containers.Handle
	debugUsed  map[debugKey]struct{}

	membershipChanged     bool
	textMembershipChanged bool
	generation            uint64
	revision              uint64
	stats                 FrameStats
}

func NewRenderer(device gpu.Device, sheet *atlas.Atlas, geometries *systems.GeometrySystem, shaper text.Shaper, config RendererConfig) (*Renderer, error) {
	if shaper == nil {
		shaper = text.NewAdvanceShaper()
	}
	if config.InstanceCapacity == 0 {
		config.InstanceCapacity = 64
	}
	if config.GlyphCapacity == 0 {
		config.GlyphCapacity = 256
	}
	if config.DebugFont == "" {
		config.DebugFont = "debug"
	}

	r := &Renderer{
		device:     device,
		atlas:      sheet,
		geometries: geometries,
		assets:     rendererAssets{Atlas: sheet, shaper: shaper},
		objects:    containers.NewArena[Drawable](int(config.InstanceCapacity)),
		slots:      make(map[uint32]uint32),
		debugFont:  config.DebugFont,
		debugTexts: make(map[debugKey]containers.Handle),
		debugUsed:  make(map[debugKey]struct{}),
		generation: sheet.Generation(),
		revision:   sheet.Revision(),
	}

	instanceBytes := uint64(config.InstanceCapacity) * metadata.InstanceRecordSize
	var err error
	if r.instances, err = gpu.NewGrowableBuffer(device, "instances", gpu.BufferUsageInstance, instanceBytes); err != nil {
		return nil, err
	}
	if r.scratch, err = gpu.NewGrowableBuffer(device, "instances_grouped", gpu.BufferUsageInstance, instanceBytes); err != nil {
		r.Destroy()
		return nil, err
	}
	glyphBytes := uint64(config.GlyphCapacity) * metadata.GlyphRecordSize
	if r.glyphs, err = gpu.NewGrowableBuffer(device, "glyphs", gpu.BufferUsageInstance, glyphBytes); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// CreateMesh takes a reference on desc.Geometry, held until the mesh is
// removed. A released geometry is replaced by the unit rect.
func (r *Renderer) CreateMesh(desc MeshDesc) containers.Handle {
	held, err := acquireGeometry(r.geometries, desc.Geometry)
	if err != nil {
		core.LogWarn("mesh drawn as unit rect: %s", err)
		held, _ = acquireGeometry(r.geometries, nil)
	}
	desc.Geometry = held
	r.membershipChanged = true
	return r.objects.Insert(newMesh(desc, r.geometries))
}

func (r *Renderer) CreateSprite(desc SpriteDesc) containers.Handle {
	r.membershipChanged = true
	return r.objects.Insert(newSprite(desc, r.geometries.UnitRect()))
}

func (r *Renderer) CreateText(desc TextDesc) containers.Handle {
	r.textMembershipChanged = true
	return r.objects.Insert(newText(desc, r.geometries.UnitRect()))
}

func lookup[T Drawable](r *Renderer, h containers.Handle) (T, error) {
	var zero T
	d, ok := r.objects.Get(h)
	if !ok {
		return zero, fmt.Errorf("object %d/%d: %w", h.Index, h.Generation, core.ErrNotFound)
	}
	v, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("object %d/%d is a %T: %w", h.Index, h.Generation, d, core.ErrNotFound)
	}
	return v, nil
}

func (r *Renderer) Get(h containers.Handle) (Drawable, error)   { return lookup[Drawable](r, h) }
func (r *Renderer) Mesh(h containers.Handle) (*Mesh, error)     { return lookup[*Mesh](r, h) }
func (r *Renderer) Sprite(h containers.Handle) (*Sprite, error) { return lookup[*Sprite](r, h) }
func (r *Renderer) Text(h containers.Handle) (*Text, error)     { return lookup[*Text](r, h) }

// Remove destroys the object behind h. Its records stop being drawn on the
// next Synchronize.
func (r *Renderer) Remove(h containers.Handle) error {
	d, ok := r.objects.Remove(h)
	if !ok {
		return fmt.Errorf("object %d/%d: %w", h.Index, h.Generation, core.ErrNotFound)
	}
	switch o := d.(type) {
	case *Text:
		r.textMembershipChanged = true
	case *Mesh:
		o.release()
		r.membershipChanged = true
	default:
		r.membershipChanged = true
	}
	return nil
}

// Len is the number of live objects.
func (r *Renderer) Len() int {
	return r.objects.Len()
}

// Animate advances every sprite by dt seconds.
func (r *Renderer) Animate(dt float32) {
	r.objects.Each(func(_ containers.Handle, d *Drawable) {
		if s, ok := (*d).(*Sprite); ok {
			s.Update(dt)
		}
	})
}

// InvalidateTexture re-resolves every object sampling label. Called after the
// region behind label was replaced.
func (r *Renderer) InvalidateTexture(label string) {
	r.invalidateTextures(func(l string, _ bool) bool { return l == label })
}

// invalidateTextures marks dirty every textured mesh and sprite for which
// match holds. Sprites size themselves from their region, so their transform
// is redone as well.
func (r *Renderer) invalidateTextures(match func(label string, unresolved bool) bool) {
	r.objects.Each(func(_ containers.Handle, d *Drawable) {
		switch o := (*d).(type) {
		case *Mesh:
			if o.texture.Kind != metadata.TextureNone && match(o.texture.Label, o.unresolved) {
				o.markDirty(DirtyMaterial)
			}
		case *Sprite:
			if match(o.sheet, o.unresolved) {
				o.markDirty(DirtyTransform | DirtyMaterial)
			}
		}
	})
}

func (r *Renderer) Stats() FrameStats                   { return r.stats }
func (r *Renderer) InstanceBuffer() *gpu.GrowableBuffer { return r.instances }
func (r *Renderer) GroupedBuffer() *gpu.GrowableBuffer  { return r.scratch }
func (r *Renderer) GlyphBuffer() *gpu.GrowableBuffer    { return r.glyphs }

// Slot returns where the object at arena index sits in the grouped buffer.
func (r *Renderer) Slot(h containers.Handle) (uint32, bool) {
	if !r.objects.Contains(h) {
		return 0, false
	}
	slot, ok := r.slots[h.Index]
	return slot, ok
}

// SynchronizeAndDraw runs one frame.
func (r *Renderer) SynchronizeAndDraw(pass gpu.Pass) error {
	if err := r.Synchronize(); err != nil {
		return err
	}
	r.Draw(pass)
	return nil
}

// Draw submits one instanced draw per geometry group and one per font, layer
// by layer. Within a layer text is drawn after meshes and sprites.
func (r *Renderer) Draw(pass gpu.Pass) {
	r.stats.Draws = 0
	r.stats.Instances = 0
	g, f := 0, 0
	for g < len(r.groups) || f < len(r.fonts) {
		if f == len(r.fonts) || (g < len(r.groups) && r.groups[g].layer <= r.fonts[f].layer) {
			r.drawInstances(pass, r.groups[g].geometry, r.scratch, r.groups[g].first, r.groups[g].count)
			g++
			continue
		}
		r.drawInstances(pass, r.geometries.UnitRect(), r.glyphs, r.fonts[f].first, r.fonts[f].count)
		f++
	}
}

func (r *Renderer) drawInstances(pass gpu.Pass, geometry *metadata.Geometry, instances *gpu.GrowableBuffer, first, count uint32) {
	pass.SetVertexBuffer(gpu.SlotVertex, geometry.VertexBuffer, 0)
	pass.SetIndexBuffer(geometry.IndexBuffer, 0)
	pass.SetVertexBuffer(gpu.SlotInstance, instances.Buffer(), 0)
	pass.DrawIndexed(geometry.IndexCount, count, 0, 0, first)
	r.stats.Draws++
	r.stats.Instances += int(count)
}

// DrawDebugText shows content at position on layer until the next frame that
// does not draw it again. Debug texts are kept per layer and rounded position,
// so redrawing one every frame updates a single object.
func (r *Renderer) DrawDebugText(layer uint32, content string, position math.Vec2) {
	key := debugKey{
		layer: layer,
		x:     int32(stdmath.Round(float64(position.X))),
		y:     int32(stdmath.Round(float64(position.Y))),
	}
	r.debugUsed[key] = struct{}{}
	pos := math.NewVec3(position.X, position.Y, 0)

	if h, ok := r.debugTexts[key]; ok {
		if txt, err := r.Text(h); err == nil {
			txt.SetContent(content)
			if txt.Position() != pos {
				txt.SetPosition(pos)
			}
			txt.SetVisible(true)
			return
		}
	}
	r.debugTexts[key] = r.CreateText(TextDesc{
		Font:     r.debugFont,
		Content:  content,
		Position: pos,
		Layer:    layer,
	})
}

// hideUnusedDebugText hides the debug texts not drawn since the last frame.
func (r *Renderer) hideUnusedDebugText() {
	for key, h := range r.debugTexts {
		if _, used := r.debugUsed[key]; used {
			continue
		}
		if txt, err := r.Text(h); err == nil {
			txt.SetVisible(false)
		}
	}
	clear(r.debugUsed)
}

// Destroy releases every mesh geometry and the renderer's buffers. The
// renderer is empty afterwards.
func (r *Renderer) Destroy() {
	if r.objects != nil {
		r.objects.Each(func(_ containers.Handle, d *Drawable) {
			if m, ok := (*d).(*Mesh); ok {
				m.release()
			}
		})
		r.objects = containers.NewArena[Drawable](0)
	}
	for _, b := range []*gpu.GrowableBuffer{r.instances, r.scratch, r.glyphs} {
		if b != nil {
			b.Destroy()
		}
	}
	r.groups = nil
	r.fonts = nil
}
