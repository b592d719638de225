package retained

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// SpriteDesc describes a sprite. Frames index into the region packed under
// Sheet; with no frames the whole region is one frame. RenderScale converts
// frame pixels to world units and defaults to one.
type SpriteDesc struct {
	Sheet       string
	Frames      []metadata.SpriteFrame
	RenderScale float32
	Position    math.Vec3
	Rotation    math.Vec3
	Scale       math.Vec3
	Color       math.Color
	Layer       uint32
	Hidden      bool
	Paused      bool
}

// Sprite is a textured unit rect whose size follows its current frame.
type Sprite struct {
	base
	geometry    *metadata.Geometry
	sheet       string
	frames      []metadata.SpriteFrame
	frame       int
	elapsed     float32
	renderScale float32
	paused      bool
	record      metadata.InstanceRecord
	culled      bool
	unresolved  bool
}

func newSprite(desc SpriteDesc, unitRect *metadata.Geometry) *Sprite {
	scale := desc.Scale
	if scale == (math.Vec3{}) {
		scale = math.NewVec3One()
	}
	if desc.RenderScale == 0 {
		desc.RenderScale = 1
	}
	if desc.Color == (math.Color{}) {
		desc.Color = math.ColorWhite
	}
	return &Sprite{
		base:        newBase(desc.Position, desc.Rotation, scale, desc.Color, desc.Layer, desc.Hidden),
		geometry:    unitRect,
		sheet:       desc.Sheet,
		frames:      append([]metadata.SpriteFrame(nil), desc.Frames...),
		renderScale: desc.RenderScale,
		paused:      desc.Paused,
	}
}

func (s *Sprite) GeometryID() uint32                      { return s.geometry.ID }
func (s *Sprite) Geometry() *metadata.Geometry            { return s.geometry }
func (s *Sprite) InstanceRecord() metadata.InstanceRecord { return s.record }
func (s *Sprite) Culled() bool                            { return s.culled }
func (s *Sprite) Sheet() string                           { return s.sheet }
func (s *Sprite) Frame() int                              { return s.frame }
func (s *Sprite) FrameCount() int                         { return len(s.frames) }

func (s *Sprite) SetPaused(paused bool) { s.paused = paused }

// Update advances the animation by dt seconds, looping at the last frame.
func (s *Sprite) Update(dt float32) {
	if s.paused || len(s.frames) < 2 {
		return
	}
	s.elapsed += dt
	next := s.frame
	for {
		d := s.frames[next].Duration
		if d <= 0 || s.elapsed < d {
			break
		}
		s.elapsed -= d
		next = (next + 1) % len(s.frames)
	}
	if next != s.frame {
		s.showFrame(next)
	}
}

// SetFrame jumps to frame i and restarts its timer.
func (s *Sprite) SetFrame(i int) {
	if i < 0 || i >= len(s.frames) {
		core.LogWarn("sprite %s has no frame %d", s.sheet, i)
		return
	}
	s.elapsed = 0
	if i != s.frame {
		s.showFrame(i)
	}
}

// Reset rewinds to the first frame.
func (s *Sprite) Reset() {
	s.elapsed = 0
	if s.frame != 0 {
		s.showFrame(0)
	}
}

func (s *Sprite) showFrame(i int) {
	prev := s.frames[s.frame]
	s.frame = i
	s.dirty |= DirtyMaterial
	if cur := s.frames[i]; cur.Width != prev.Width || cur.Height != prev.Height {
		s.dirty |= DirtyTransform
	}
}

// frameRegion resolves the current frame on the atlas.
func (s *Sprite) frameRegion(assets Assets) (metadata.AtlasRegion, bool) {
	if len(s.frames) == 0 {
		return assets.Region(s.sheet)
	}
	f := s.frames[s.frame]
	r, err := assets.SubRegion(s.sheet, f.X, f.Y, f.Width, f.Height)
	if err != nil {
		core.LogDebug("sprite %s frame %d: %s", s.sheet, s.frame, err)
		return metadata.AtlasRegion{}, false
	}
	return r, true
}

func (s *Sprite) Prepare(assets Assets) bool {
	handled := s.dirty
	if handled == DirtyNone {
		return false
	}
	region, ok := s.frameRegion(assets)
	if !ok {
		region = assets.White()
	}
	s.unresolved = !ok
	if handled.Has(DirtyTransform) {
		scale := s.transform.Scale
		s.record.Position = s.transform.Position
		s.record.Rotation = s.transform.Rotation
		s.record.Scale = math.NewVec3(
			float32(region.Width)*s.renderScale*scale.X,
			float32(region.Height)*s.renderScale*scale.Y,
			scale.Z,
		)
		s.culled = zeroScale(s.record.Scale)
	}
	if handled.Has(DirtyMaterial) {
		s.record.Color = s.color.Vec4()
		s.record.UVOffset = region.UV.Offset()
		s.record.UVScale = region.UV.Scale()
	}
	s.dirty &^= handled
	return handled.Any(DirtyTransform | DirtyMaterial)
}
