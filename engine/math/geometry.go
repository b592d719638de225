package math

import "github.com/spaghettifunk/prism/engine/core"

// GeometryGenerateNormals assigns flat face normals to every triangle.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func Vertex3dEqual(vert0 Vertex3D, vert1 Vertex3D) bool {
	return vert0.Position.Compare(vert1.Position, K_FLOAT_EPSILON) &&
		vert0.Normal.Compare(vert1.Normal, K_FLOAT_EPSILON) &&
		vert0.Texcoord.Compare(vert1.Texcoord, K_FLOAT_EPSILON)
}

// GeometryDeduplicateVertices merges equal vertices and rewrites indices in place.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) []Vertex3D {
	unique := make([]Vertex3D, 0, len(vertices))
	remap := make([]uint32, len(vertices))

	for v := range vertices {
		found := -1
		for u := range unique {
			if Vertex3dEqual(vertices[v], unique[u]) {
				found = u
				break
			}
		}
		if found < 0 {
			found = len(unique)
			unique = append(unique, vertices[v])
		}
		remap[v] = uint32(found)
	}
	for i, idx := range indices {
		indices[i] = remap[idx]
	}

	if removed := len(vertices) - len(unique); removed > 0 {
		core.LogDebug("geometry_deduplicate_vertices: removed %d vertices, orig/now %d/%d.", removed, len(vertices), len(unique))
	}
	return unique
}

// GeometryExtents returns the axis aligned bounds of vertices.
func GeometryExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	e := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		p := v.Position
		e.Min = Vec3{X: min(e.Min.X, p.X), Y: min(e.Min.Y, p.Y), Z: min(e.Min.Z, p.Z)}
		e.Max = Vec3{X: max(e.Max.X, p.X), Y: max(e.Max.Y, p.Y), Z: max(e.Max.Z, p.Z)}
	}
	return e
}
