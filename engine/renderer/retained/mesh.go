package retained

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// MeshDesc describes a mesh to create. A nil Geometry draws the unit rect;
// a zero Scale means one.
type MeshDesc struct {
	Geometry *metadata.Geometry
	Position math.Vec3
	Rotation math.Vec3
	Scale    math.Vec3
	Material metadata.MaterialConfig
	Layer    uint32
	Hidden   bool
}

// geometrySource hands out geometry references. A mesh holds one on its
// geometry for as long as it uses it.
type geometrySource interface {
	UnitRect() *metadata.Geometry
	AcquireByID(id uint32) (*metadata.Geometry, error)
	Release(geometry *metadata.Geometry)
}

// acquireGeometry takes a reference on g, or on the unit rect when g is nil.
// A geometry whose id now belongs to another registration is rejected.
func acquireGeometry(src geometrySource, g *metadata.Geometry) (*metadata.Geometry, error) {
	if g == nil {
		g = src.UnitRect()
	}
	if g == nil {
		return nil, fmt.Errorf("no geometry to acquire: %w", core.ErrNotFound)
	}
	held, err := src.AcquireByID(g.ID)
	if err != nil {
		return nil, fmt.Errorf("geometry %q: %w", g.Name, err)
	}
	if held != g {
		src.Release(held)
		return nil, fmt.Errorf("geometry %q (id %d) was released: %w", g.Name, g.ID, core.ErrNotFound)
	}
	return held, nil
}

type Mesh struct {
	base
	refs     geometrySource
	geometry *metadata.Geometry
	texture  metadata.MaterialTexture
	record   metadata.InstanceRecord
	culled   bool

	// unresolved is set while the texture label has no region.
	unresolved bool
}

// newMesh expects desc.Geometry to be already acquired from refs.
func newMesh(desc MeshDesc, refs geometrySource) *Mesh {
	scale := desc.Scale
	if scale == (math.Vec3{}) {
		scale = math.NewVec3One()
	}
	return &Mesh{
		base:     newBase(desc.Position, desc.Rotation, scale, desc.Material.Color, desc.Layer, desc.Hidden),
		refs:     refs,
		geometry: desc.Geometry,
		texture:  desc.Material.Texture,
	}
}

func (m *Mesh) GeometryID() uint32 {
	if m.geometry == nil {
		return 0
	}
	return m.geometry.ID
}

func (m *Mesh) Geometry() *metadata.Geometry { return m.geometry }

// SetGeometry moves the mesh to another geometry batch. A nil geometry is
// the unit rect.
func (m *Mesh) SetGeometry(geometry *metadata.Geometry) error {
	if geometry == nil {
		geometry = m.refs.UnitRect()
	}
	if m.geometry == geometry {
		return nil
	}
	held, err := acquireGeometry(m.refs, geometry)
	if err != nil {
		return err
	}
	m.release()
	m.geometry = held
	m.dirty |= DirtyContent
	return nil
}

// release drops the reference on the current geometry.
func (m *Mesh) release() {
	if m.geometry != nil {
		m.refs.Release(m.geometry)
		m.geometry = nil
	}
}

func (m *Mesh) Material() metadata.MaterialConfig {
	return metadata.MaterialConfig{Color: m.color, Texture: m.texture}
}

func (m *Mesh) SetMaterial(material metadata.MaterialConfig) {
	m.color = material.Color
	m.texture = material.Texture
	m.dirty |= DirtyMaterial
}

// SetTexture samples the whole region packed under label.
func (m *Mesh) SetTexture(label string) {
	m.texture = metadata.MaterialTexture{Kind: metadata.TextureFull, Label: label}
	m.dirty |= DirtyMaterial
}

// SetPartialTexture samples sub, relative to the region packed under label.
func (m *Mesh) SetPartialTexture(label string, sub metadata.Rect) {
	m.texture = metadata.MaterialTexture{Kind: metadata.TexturePartial, Label: label, Sub: sub}
	m.dirty |= DirtyMaterial
}

func (m *Mesh) ClearTexture() {
	m.texture = metadata.MaterialTexture{}
	m.dirty |= DirtyMaterial
}

func (m *Mesh) InstanceRecord() metadata.InstanceRecord { return m.record }
func (m *Mesh) Culled() bool                            { return m.culled }

func (m *Mesh) Prepare(assets Assets) bool {
	handled := m.dirty
	if handled == DirtyNone {
		return false
	}
	if handled.Has(DirtyTransform) {
		m.record.Position = m.transform.Position
		m.record.Rotation = m.transform.Rotation
		m.record.Scale = m.transform.Scale
		m.culled = zeroScale(m.transform.Scale)
	}
	if handled.Has(DirtyMaterial) {
		uv, ok := resolveUV(assets, m.texture)
		m.unresolved = !ok
		m.record.Color = m.color.Vec4()
		m.record.UVOffset = uv.Offset()
		m.record.UVScale = uv.Scale()
	}
	m.dirty &^= handled
	return handled.Any(DirtyTransform | DirtyMaterial)
}
