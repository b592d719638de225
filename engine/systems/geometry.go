package systems

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type GeometrySystemConfig struct {
	/**
	 * @brief Max number of geometries that can be loaded at once.
	 * NOTE: Should be significantly greater than the number of static meshes because
	 * the there can and will be more than one of these per mesh.
	 * Take other systems into account as well.
	 */
	MaxGeometryCount uint32
}

/**
 * @brief Owns every uploaded geometry. Geometries are keyed by a content hash
 * over vertices, indices and topology, so identical configs share one ID and
 * one pair of GPU buffers.
 */
type GeometrySystem struct {
	config GeometrySystemConfig
	device gpu.Device

	// Array of registered geometries, indexed by geometry ID.
	registered []*metadata.GeometryReference
	byHash     map[uint64]uint32
	unitRect   *metadata.Geometry
}

/**
 * @brief Initializes the geometry system and uploads the shared unit rectangle.
 *
 * @param config The configuration for this system.
 * @param device The device used to create vertex and index buffers.
 */
func NewGeometrySystem(config GeometrySystemConfig, device gpu.Device) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogWarn("%s", err)
		return nil, err
	}

	gs := &GeometrySystem{
		config: config,
		device: device,
		// slot 0 is never handed out so a zero ID always means "no geometry"
		registered: make([]*metadata.GeometryReference, config.MaxGeometryCount+1),
		byHash:     make(map[uint64]uint32),
	}

	unit, err := gs.Acquire(GenerateUnitRectConfig())
	if err != nil {
		core.LogError("failed to create default geometries. Application cannot continue")
		return nil, err
	}
	gs.unitRect = unit
	return gs, nil
}

func geometryHash(config *metadata.GeometryConfig) uint64 {
	topology := binary.LittleEndian.AppendUint32(nil, uint32(config.Topology))
	return metadata.ContentHash(metadata.VertexBytes(config.Vertices), metadata.IndexBytes(config.Indices), topology)
}

/**
 * @brief Registers and acquires a geometry using the given config. An identical
 * config already registered is returned with its reference count bumped.
 *
 * @param config The geometry configuration.
 * @return The acquired geometry or an error.
 */
func (gs *GeometrySystem) Acquire(config *metadata.GeometryConfig) (*metadata.Geometry, error) {
	hash := geometryHash(config)
	if id, ok := gs.byHash[hash]; ok {
		ref := gs.registered[id]
		ref.ReferenceCount++
		return ref.Geometry, nil
	}

	id := uint32(0)
	for i := uint32(1); i < uint32(len(gs.registered)); i++ {
		if gs.registered[i] == nil {
			id = i
			break
		}
	}
	if id == 0 {
		err := fmt.Errorf("unable to obtain free slot for geometry %q, adjust MaxGeometryCount: %w", config.Name, core.ErrCapacityExceeded)
		core.LogError("%s", err)
		return nil, err
	}

	geometry, err := gs.upload(id, hash, config)
	if err != nil {
		return nil, err
	}
	gs.registered[id] = &metadata.GeometryReference{ReferenceCount: 1, Geometry: geometry}
	gs.byHash[hash] = id
	core.LogDebug("geometry %q registered with id %d (%d vertices, %d indices)", geometry.Name, id, geometry.VertexCount, geometry.IndexCount)
	return geometry, nil
}

func (gs *GeometrySystem) upload(id uint32, hash uint64, config *metadata.GeometryConfig) (*metadata.Geometry, error) {
	geometry := &metadata.Geometry{
		ID:          id,
		Hash:        hash,
		Name:        config.Name,
		Topology:    config.Topology,
		Extents:     math.GeometryExtents(config.Vertices),
		VertexCount: uint32(len(config.Vertices)),
		IndexCount:  uint32(len(config.Indices)),
	}
	if len(config.Vertices) == 0 || len(config.Indices) == 0 {
		core.LogWarn("geometry %q has no vertices or indices, nothing uploaded", config.Name)
		return geometry, nil
	}

	vertices := metadata.VertexBytes(config.Vertices)
	vb, err := gs.device.CreateBuffer(gpu.BufferDescriptor{
		Label: config.Name + ".vertices",
		Size:  uint64(len(vertices)),
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer for %q: %w", config.Name, err)
	}
	indices := metadata.IndexBytes(config.Indices)
	ib, err := gs.device.CreateBuffer(gpu.BufferDescriptor{
		Label: config.Name + ".indices",
		Size:  uint64(len(indices)),
		Usage: gpu.BufferUsageIndex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		gs.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("failed to create index buffer for %q: %w", config.Name, err)
	}
	if err := gs.device.WriteBuffer(vb, 0, vertices); err != nil {
		gs.device.DestroyBuffer(vb)
		gs.device.DestroyBuffer(ib)
		return nil, err
	}
	if err := gs.device.WriteBuffer(ib, 0, indices); err != nil {
		gs.device.DestroyBuffer(vb)
		gs.device.DestroyBuffer(ib)
		return nil, err
	}
	geometry.VertexBuffer = vb
	geometry.IndexBuffer = ib
	return geometry, nil
}

/**
 * @brief Acquires an existing geometry by id.
 */
func (gs *GeometrySystem) AcquireByID(id uint32) (*metadata.Geometry, error) {
	if id == 0 || id >= uint32(len(gs.registered)) || gs.registered[id] == nil {
		return nil, fmt.Errorf("geometry id %d: %w", id, core.ErrNotFound)
	}
	ref := gs.registered[id]
	ref.ReferenceCount++
	return ref.Geometry, nil
}

// Get looks a geometry up without taking a reference.
func (gs *GeometrySystem) Get(id uint32) (*metadata.Geometry, bool) {
	if id == 0 || id >= uint32(len(gs.registered)) || gs.registered[id] == nil {
		return nil, false
	}
	return gs.registered[id].Geometry, true
}

/**
 * @brief Releases a reference to the provided geometry. The GPU buffers are
 * destroyed once nothing references it.
 */
func (gs *GeometrySystem) Release(geometry *metadata.Geometry) {
	if geometry == nil || geometry.ID == 0 || geometry.ID >= uint32(len(gs.registered)) {
		core.LogWarn("geometry_system_release cannot release invalid geometry id. Nothing was done.")
		return
	}
	ref := gs.registered[geometry.ID]
	if ref == nil || ref.Geometry != geometry {
		core.LogError("Geometry id mismatch. Check registration logic, as this should never occur.")
		return
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount == 0 && geometry != gs.unitRect {
		gs.destroy(geometry)
	}
}

// References returns how many holders the geometry with id has.
func (gs *GeometrySystem) References(id uint32) uint64 {
	if id == 0 || id >= uint32(len(gs.registered)) || gs.registered[id] == nil {
		return 0
	}
	return gs.registered[id].ReferenceCount
}

func (gs *GeometrySystem) destroy(geometry *metadata.Geometry) {
	if geometry.VertexBuffer != nil {
		gs.device.DestroyBuffer(geometry.VertexBuffer)
	}
	if geometry.IndexBuffer != nil {
		gs.device.DestroyBuffer(geometry.IndexBuffer)
	}
	delete(gs.byHash, geometry.Hash)
	gs.registered[geometry.ID] = nil
	core.LogDebug("geometry %q (id %d) destroyed", geometry.Name, geometry.ID)
}

/**
 * @brief Obtains the shared unit rectangle used by sprites and glyphs.
 */
func (gs *GeometrySystem) UnitRect() *metadata.Geometry {
	return gs.unitRect
}

func (gs *GeometrySystem) Shutdown() error {
	for _, ref := range gs.registered {
		if ref != nil {
			gs.destroy(ref.Geometry)
		}
	}
	gs.unitRect = nil
	return nil
}

/**
 * @brief Generates the 1x1 rectangle centered on the origin, facing +Z.
 */
func GenerateUnitRectConfig() *metadata.GeometryConfig {
	config := GenerateRectConfig(1, 1)
	config.Name = metadata.UnitRectGeometryName
	return config
}

/**
 * @brief Generates a width x height rectangle centered on the origin.
 *
 *	0    3
 *
 *	2    1
 */
func GenerateRectConfig(width, height float32) *metadata.GeometryConfig {
	hw, hh := width*0.5, height*0.5
	normal := math.NewVec3(0, 0, 1)
	return &metadata.GeometryConfig{
		Name: fmt.Sprintf("rect_%gx%g", width, height),
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(-hw, -hh, 0), Normal: normal, Texcoord: math.NewVec2(0, 0)},
			{Position: math.NewVec3(hw, hh, 0), Normal: normal, Texcoord: math.NewVec2(1, 1)},
			{Position: math.NewVec3(-hw, hh, 0), Normal: normal, Texcoord: math.NewVec2(0, 1)},
			{Position: math.NewVec3(hw, -hh, 0), Normal: normal, Texcoord: math.NewVec2(1, 0)},
		},
		Indices: []uint32{0, 1, 2, 0, 3, 1},
	}
}

/**
 * @brief Generates a filled circle as a triangle fan flattened into a list.
 *
 * @param radius The radius of the circle. Defaults to 0.5 when zero.
 * @param segments The number of rim segments. At least 3.
 */
func GenerateCircleConfig(radius float32, segments uint32) *metadata.GeometryConfig {
	if radius == 0 {
		core.LogWarn("radius must be nonzero. Defaulting to 0.5.")
		radius = 0.5
	}
	if segments < 3 {
		core.LogWarn("segments must be at least 3. Defaulting to 3.")
		segments = 3
	}

	normal := math.NewVec3(0, 0, 1)
	config := &metadata.GeometryConfig{
		Name:     fmt.Sprintf("circle_%g_%d", radius, segments),
		Vertices: make([]math.Vertex3D, 0, segments+1),
		Indices:  make([]uint32, 0, segments*3),
	}
	config.Vertices = append(config.Vertices, math.Vertex3D{Normal: normal, Texcoord: math.NewVec2(0.5, 0.5)})
	for i := 0; i < int(segments); i++ {
		p := math.CircleVertex(i, int(segments), radius)
		config.Vertices = append(config.Vertices, math.Vertex3D{
			Position: math.NewVec3(p.X, p.Y, 0),
			Normal:   normal,
			Texcoord: math.NewVec2(p.X/(2*radius)+0.5, p.Y/(2*radius)+0.5),
		})
	}
	for i := uint32(0); i < segments; i++ {
		config.Indices = append(config.Indices, 0, i+1, (i+1)%segments+1)
	}
	return config
}

/**
 * @brief Generates configuration for plane geometries given the provided parameters.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 */
func GeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	config := &metadata.GeometryConfig{
		Name:     name,
		Vertices: make([]math.Vertex3D, 0, xSegmentCount*ySegmentCount*4),
		Indices:  make([]uint32, 0, xSegmentCount*ySegmentCount*6),
	}
	if config.Name == "" {
		config.Name = fmt.Sprintf("plane_%gx%g", width, height)
	}

	segW := width / float32(xSegmentCount)
	segH := height / float32(ySegmentCount)
	normal := math.NewVec3(0, 0, 1)
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segW - width*0.5
			minY := float32(y)*segH - height*0.5
			maxX, maxY := minX+segW, minY+segH
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(y) / float32(ySegmentCount) * tileY
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(y+1) / float32(ySegmentCount) * tileY

			base := uint32(len(config.Vertices))
			config.Vertices = append(config.Vertices,
				math.Vertex3D{Position: math.NewVec3(minX, minY, 0), Normal: normal, Texcoord: math.NewVec2(minU, minV)},
				math.Vertex3D{Position: math.NewVec3(maxX, maxY, 0), Normal: normal, Texcoord: math.NewVec2(maxU, maxV)},
				math.Vertex3D{Position: math.NewVec3(minX, maxY, 0), Normal: normal, Texcoord: math.NewVec2(minU, maxV)},
				math.Vertex3D{Position: math.NewVec3(maxX, minY, 0), Normal: normal, Texcoord: math.NewVec2(maxU, minV)},
			)
			config.Indices = append(config.Indices, base+0, base+1, base+2, base+0, base+3, base+1)
		}
	}
	// neighbouring segments share edge vertices
	config.Vertices = math.GeometryDeduplicateVertices(config.Vertices, config.Indices)
	return config
}

// cubeFaces lists, per face, the outward normal and the axis vectors spanning it.
var cubeFaces = [6]struct{ normal, u, v math.Vec3 }{
	{math.NewVec3(0, 0, 1), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)},
	{math.NewVec3(0, 0, -1), math.NewVec3(-1, 0, 0), math.NewVec3(0, 1, 0)},
	{math.NewVec3(-1, 0, 0), math.NewVec3(0, 0, 1), math.NewVec3(0, 1, 0)},
	{math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0)},
	{math.NewVec3(0, -1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, 1)},
	{math.NewVec3(0, 1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1)},
}

/**
 * @brief Generates an axis aligned box centered on the origin with 4 vertices
 * per face so each face carries its own normal and texture coordinates.
 */
func GenerateCubeConfig(width, height, depth, tileX, tileY float32, name string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	config := &metadata.GeometryConfig{
		Name:     name,
		Vertices: make([]math.Vertex3D, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	if config.Name == "" {
		config.Name = fmt.Sprintf("cube_%gx%gx%g", width, height, depth)
	}

	half := math.NewVec3(width*0.5, height*0.5, depth*0.5)
	corners := [4][2]float32{{-1, -1}, {1, 1}, {-1, 1}, {1, -1}}
	for _, face := range cubeFaces {
		center := face.normal.Mul(half)
		base := uint32(len(config.Vertices))
		for _, c := range corners {
			p := center.Add(face.u.Mul(half).MulScalar(c[0])).Add(face.v.Mul(half).MulScalar(c[1]))
			config.Vertices = append(config.Vertices, math.Vertex3D{
				Position: p,
				Normal:   face.normal,
				Texcoord: math.NewVec2((c[0]+1)*0.5*tileX, (c[1]+1)*0.5*tileY),
			})
		}
		config.Indices = append(config.Indices, base+0, base+1, base+2, base+0, base+3, base+1)
	}
	return config
}
