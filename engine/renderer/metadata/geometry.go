package metadata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
)

/** @brief The name of the shared unit rectangle geometry. */
const UnitRectGeometryName string = "unit_rect"

/** @brief Primitive assembly of a geometry's indices. */
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
)

/** @brief The encoded size of a Vertex3D: position, normal, texcoord. */
const VertexSize = 8 * 4

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief An array of Indices. */
	Indices []uint32
	/** @brief How the indices are assembled into primitives. */
	Topology Topology
	/** @brief The Name of the geometry. Not part of its identity. */
	Name string
}

type GeometryReference struct {
	ReferenceCount uint64
	Geometry       *Geometry
}

/**
 * @brief Uploaded geometry shared by every object drawing it. Two configs with
 * the same vertices, indices and topology resolve to the same Geometry.
 */
type Geometry struct {
	/** @brief The geometry identifier, used as the batching key. */
	ID uint32
	/** @brief The content hash over vertices, indices and topology. */
	Hash uint64
	/** @brief The geometry name. */
	Name     string
	Topology Topology
	/** @brief The extents of the geometry in local coordinates. */
	Extents math.Extents3D

	VertexCount  uint32
	IndexCount   uint32
	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer
}

// Degenerate reports whether the geometry covers no area and can be skipped.
func (g *Geometry) Degenerate() bool {
	if g == nil || g.IndexCount == 0 {
		return true
	}
	size := g.Extents.Max.Sub(g.Extents.Min)
	nonZero := 0
	for _, c := range []float32{size.X, size.Y, size.Z} {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero < 2
}

func VertexBytes(vertices []math.Vertex3D) []byte {
	b := make([]byte, 0, len(vertices)*VertexSize)
	for _, v := range vertices {
		for _, f := range []float32{
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
		} {
			b = binary.LittleEndian.AppendUint32(b, stdmath.Float32bits(f))
		}
	}
	return b
}

func IndexBytes(indices []uint32) []byte {
	b := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}
