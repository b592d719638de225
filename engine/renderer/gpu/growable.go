package gpu

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

// GrowableBuffer is a GPU buffer that is replaced by a larger one when a
// write does not fit. Replacing does not preserve the old contents: callers
// are told through the resized result and must rewrite live data.
type GrowableBuffer struct {
	device Device
	desc   BufferDescriptor
	buffer Buffer
}

func NewGrowableBuffer(device Device, label string, usage BufferUsage, initialSize uint64) (*GrowableBuffer, error) {
	if initialSize == 0 {
		initialSize = 256
	}
	desc := BufferDescriptor{Label: label, Size: initialSize, Usage: usage | BufferUsageCopyDst | BufferUsageCopySrc}
	buf, err := device.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create growable buffer %s: %w", label, err)
	}
	return &GrowableBuffer{device: device, desc: desc, buffer: buf}, nil
}

func (g *GrowableBuffer) Buffer() Buffer {
	return g.buffer
}

func (g *GrowableBuffer) Capacity() uint64 {
	return g.desc.Size
}

// Reserve makes sure the buffer holds at least required bytes.
func (g *GrowableBuffer) Reserve(required uint64) (bool, error) {
	if required <= g.desc.Size {
		return false, nil
	}
	return true, g.Resize(required)
}

// Resize allocates a new buffer of max(capacity*2, required) bytes. The old
// buffer is destroyed only once the new one exists.
func (g *GrowableBuffer) Resize(required uint64) error {
	desc := g.desc
	desc.Size = max(g.desc.Size*2, required)
	buf, err := g.device.CreateBuffer(desc)
	if err != nil {
		return fmt.Errorf("failed to grow %s to %d bytes: %w", g.desc.Label, desc.Size, err)
	}
	core.LogDebug("growable buffer %s resized %d -> %d bytes", g.desc.Label, g.desc.Size, desc.Size)
	g.device.DestroyBuffer(g.buffer)
	g.buffer = buf
	g.desc = desc
	return nil
}

// Write stores data at offset, growing first when it does not fit.
func (g *GrowableBuffer) Write(offset uint64, data []byte) (bool, error) {
	resized, err := g.Reserve(offset + uint64(len(data)))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return resized, nil
	}
	return resized, g.device.WriteBuffer(g.buffer, offset, data)
}

func (g *GrowableBuffer) Destroy() {
	if g.buffer != nil {
		g.device.DestroyBuffer(g.buffer)
		g.buffer = nil
	}
}
