package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformLocalIsRecomputedWhenDirty(t *testing.T) {
	tr := TransformCreate()
	assert.Equal(t, NewMat4Identity(), tr.GetLocal())
	assert.False(t, tr.IsDirty)

	tr.SetPosition(NewVec3(10, 10, 0))
	assert.True(t, tr.IsDirty)
	p := NewVec3Zero().Transform(tr.GetLocal())
	assert.True(t, p.Compare(NewVec3(10, 10, 0), 1e-5))
}

func TestTransformScaleThenRotate(t *testing.T) {
	tr := TransformFromPositionRotationScale(NewVec3(1, 0, 0), NewVec3(0, 0, K_HALF_PI), NewVec3(2, 2, 2))
	p := NewVec3(1, 0, 0).Transform(tr.GetLocal())
	assert.True(t, p.Compare(NewVec3(1, 2, 0), 1e-5), "got %+v", p)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, uint32(4), Max(uint32(2), uint32(4)))
}

func TestGeometryDeduplicateVertices(t *testing.T) {
	verts := []Vertex3D{
		{Position: NewVec3(0, 0, 0)},
		{Position: NewVec3(1, 0, 0)},
		{Position: NewVec3(1, 1, 0)},
		{Position: NewVec3(0, 0, 0)},
		{Position: NewVec3(1, 1, 0)},
		{Position: NewVec3(0, 1, 0)},
	}
	indices := []uint32{0, 1, 2, 3, 4, 5}
	out := GeometryDeduplicateVertices(verts, indices)
	assert.Len(t, out, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
}

func TestGeometryGenerateNormals(t *testing.T) {
	verts := []Vertex3D{
		{Position: NewVec3(0, 0, 0)},
		{Position: NewVec3(1, 0, 0)},
		{Position: NewVec3(0, 1, 0)},
	}
	GeometryGenerateNormals(verts, []uint32{0, 1, 2})
	assert.True(t, verts[0].Normal.Compare(NewVec3(0, 0, 1), 1e-6))
}

func TestGeometryExtents(t *testing.T) {
	e := GeometryExtents([]Vertex3D{
		{Position: NewVec3(-1, 2, 0)},
		{Position: NewVec3(3, -4, 1)},
	})
	assert.Equal(t, NewVec3(-1, -4, 0), e.Min)
	assert.Equal(t, NewVec3(3, 2, 1), e.Max)
}

func TestColorRGBA8(t *testing.T) {
	c := NewColorRGBA8(255, 0, 51, 255)
	assert.True(t, c.Vec4().Compare(NewVec4(1, 0, 0.2, 1), 1e-6))
}
