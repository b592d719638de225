package metadata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/prism/engine/math"
)

// InstanceRecord is the per-instance vertex stream of meshes and sprites.
type InstanceRecord struct {
	Position math.Vec3
	Scale    math.Vec3
	Rotation math.Vec3
	Color    math.Vec4
	UVOffset math.Vec2
	UVScale  math.Vec2
}

// InstanceRecordSize is the byte stride of an encoded InstanceRecord.
const InstanceRecordSize = 17 * 4

// GlyphRecord is the per-instance vertex stream of one text glyph.
type GlyphRecord struct {
	Position math.Vec3
	Rotation math.Vec3
	// Offset is the glyph layout position already multiplied by Scale.
	Offset   math.Vec2
	Size     math.Vec2
	Scale    math.Vec2
	UVOffset math.Vec2
	UVScale  math.Vec2
	Color    math.Vec4
}

// GlyphRecordSize is the byte stride of an encoded GlyphRecord.
const GlyphRecordSize = 20 * 4

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, stdmath.Float32bits(f))
	}
	return b
}

// AppendBytes encodes r little-endian in field order.
func (r InstanceRecord) AppendBytes(b []byte) []byte {
	return appendFloats(b,
		r.Position.X, r.Position.Y, r.Position.Z,
		r.Scale.X, r.Scale.Y, r.Scale.Z,
		r.Rotation.X, r.Rotation.Y, r.Rotation.Z,
		r.Color.X, r.Color.Y, r.Color.Z, r.Color.W,
		r.UVOffset.X, r.UVOffset.Y,
		r.UVScale.X, r.UVScale.Y,
	)
}

func (r GlyphRecord) AppendBytes(b []byte) []byte {
	return appendFloats(b,
		r.Position.X, r.Position.Y, r.Position.Z,
		r.Rotation.X, r.Rotation.Y, r.Rotation.Z,
		r.Offset.X, r.Offset.Y,
		r.Size.X, r.Size.Y,
		r.Scale.X, r.Scale.Y,
		r.UVOffset.X, r.UVOffset.Y,
		r.UVScale.X, r.UVScale.Y,
		r.Color.X, r.Color.Y, r.Color.Z, r.Color.W,
	)
}

// DecodeInstanceRecord reads back a record written by AppendBytes.
func DecodeInstanceRecord(b []byte) InstanceRecord {
	f := func(i int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return InstanceRecord{
		Position: math.Vec3{X: f(0), Y: f(1), Z: f(2)},
		Scale:    math.Vec3{X: f(3), Y: f(4), Z: f(5)},
		Rotation: math.Vec3{X: f(6), Y: f(7), Z: f(8)},
		Color:    math.Vec4{X: f(9), Y: f(10), Z: f(11), W: f(12)},
		UVOffset: math.Vec2{X: f(13), Y: f(14)},
		UVScale:  math.Vec2{X: f(15), Y: f(16)},
	}
}
