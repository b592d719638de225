// Package gpu defines the device object every GPU-touching component
// receives explicitly, plus an in-memory implementation and the growable
// buffer built on top of it.
package gpu

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageInstance
	BufferUsageCopySrc
	BufferUsageCopyDst
)

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// BufferCopy is one region of a buffer-to-buffer transfer.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type Buffer interface {
	Label() string
	Size() uint64
}

type TextureFormat int

const (
	TextureFormatRGBA8 TextureFormat = iota
)

// BytesPerPixel of the format.
func (f TextureFormat) BytesPerPixel() uint32 {
	return 4
}

type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
}

type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
}

// Device owns GPU resources. One device is created by the engine and handed
// to every component that uploads or draws.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CopyBuffer(src, dst Buffer, regions []BufferCopy) error
	DestroyBuffer(buf Buffer)

	CreateTexture(desc TextureDescriptor) (Texture, error)
	WriteTexture(tex Texture, x, y, width, height uint32, pixels []byte) error
	// CopyTexture copies the top-left width x height pixels of src into dst.
	CopyTexture(src, dst Texture, width, height uint32) error
	ReadTexture(tex Texture, x, y, width, height uint32) ([]byte, error)
	DestroyTexture(tex Texture)

	MaxTextureSize() uint32
	Destroy()
}

// Pass records draw commands for one frame.
type Pass interface {
	SetVertexBuffer(slot uint32, buf Buffer, offset uint64)
	SetIndexBuffer(buf Buffer, offset uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

const (
	// SlotVertex is the per-vertex stream.
	SlotVertex uint32 = 0
	// SlotInstance is the per-instance stream.
	SlotInstance uint32 = 1
)
