package gpu

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

// HeadlessStats counts the work submitted to a HeadlessDevice.
type HeadlessStats struct {
	BuffersCreated    int
	BuffersDestroyed  int
	BufferWrites      int
	BytesWritten      uint64
	BufferCopies      int
	TexturesCreated   int
	TexturesDestroyed int
	TextureWrites     int
	TextureCopies     int
}

type headlessBuffer struct {
	label     string
	data      []byte
	destroyed bool
}

func (b *headlessBuffer) Label() string { return b.label }
func (b *headlessBuffer) Size() uint64  { return uint64(len(b.data)) }

type headlessTexture struct {
	label     string
	width     uint32
	height    uint32
	pixels    []byte
	destroyed bool
}

func (t *headlessTexture) Label() string  { return t.label }
func (t *headlessTexture) Width() uint32  { return t.width }
func (t *headlessTexture) Height() uint32 { return t.height }

// HeadlessDevice keeps every resource in host memory. It backs tests and the
// headless renderer configuration.
type HeadlessDevice struct {
	maxTextureSize uint32
	Stats          HeadlessStats

	// FailCreateTexture, when set, is returned by the next CreateTexture call.
	FailCreateTexture error
	// FailCopyTexture, when set, is returned by the next CopyTexture call.
	FailCopyTexture error
	// FailWriteTexture, when set, is returned by the next WriteTexture call.
	FailWriteTexture error
}

func NewHeadlessDevice(maxTextureSize uint32) *HeadlessDevice {
	return &HeadlessDevice{maxTextureSize: maxTextureSize}
}

func (d *HeadlessDevice) MaxTextureSize() uint32 {
	return d.maxTextureSize
}

func (d *HeadlessDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %s: %w", desc.Label, core.ErrInvalidSize)
	}
	d.Stats.BuffersCreated++
	return &headlessBuffer{label: desc.Label, data: make([]byte, desc.Size)}, nil
}

func (d *HeadlessDevice) buffer(buf Buffer) (*headlessBuffer, error) {
	b, ok := buf.(*headlessBuffer)
	if !ok || b.destroyed {
		return nil, fmt.Errorf("buffer is not a live headless buffer: %w", core.ErrNotFound)
	}
	return b, nil
}

func (d *HeadlessDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at %d into %s (%d bytes): %w", len(data), offset, b.label, len(b.data), core.ErrOutOfBounds)
	}
	copy(b.data[offset:], data)
	d.Stats.BufferWrites++
	d.Stats.BytesWritten += uint64(len(data))
	return nil
}

func (d *HeadlessDevice) CopyBuffer(src, dst Buffer, regions []BufferCopy) error {
	s, err := d.buffer(src)
	if err != nil {
		return err
	}
	t, err := d.buffer(dst)
	if err != nil {
		return err
	}
	for _, r := range regions {
		if r.SrcOffset+r.Size > uint64(len(s.data)) || r.DstOffset+r.Size > uint64(len(t.data)) {
			return fmt.Errorf("copy %+v from %s to %s: %w", r, s.label, t.label, core.ErrOutOfBounds)
		}
		copy(t.data[r.DstOffset:r.DstOffset+r.Size], s.data[r.SrcOffset:r.SrcOffset+r.Size])
	}
	d.Stats.BufferCopies++
	return nil
}

func (d *HeadlessDevice) DestroyBuffer(buf Buffer) {
	if b, ok := buf.(*headlessBuffer); ok && !b.destroyed {
		b.destroyed = true
		b.data = nil
		d.Stats.BuffersDestroyed++
	}
}

// BufferContents returns a copy of the bytes held by buf.
func (d *HeadlessDevice) BufferContents(buf Buffer) []byte {
	b, err := d.buffer(buf)
	if err != nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

func (d *HeadlessDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if err := d.FailCreateTexture; err != nil {
		d.FailCreateTexture = nil
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 || desc.Width > d.maxTextureSize || desc.Height > d.maxTextureSize {
		return nil, fmt.Errorf("texture %s %dx%d: %w", desc.Label, desc.Width, desc.Height, core.ErrInvalidSize)
	}
	d.Stats.TexturesCreated++
	bpp := desc.Format.BytesPerPixel()
	return &headlessTexture{
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		pixels: make([]byte, desc.Width*desc.Height*bpp),
	}, nil
}

func (d *HeadlessDevice) texture(tex Texture) (*headlessTexture, error) {
	t, ok := tex.(*headlessTexture)
	if !ok || t.destroyed {
		return nil, fmt.Errorf("texture is not a live headless texture: %w", core.ErrNotFound)
	}
	return t, nil
}

func (d *HeadlessDevice) WriteTexture(tex Texture, x, y, width, height uint32, pixels []byte) error {
	if err := d.FailWriteTexture; err != nil {
		d.FailWriteTexture = nil
		return err
	}
	t, err := d.texture(tex)
	if err != nil {
		return err
	}
	if x+width > t.width || y+height > t.height {
		return fmt.Errorf("write %dx%d at %d,%d into %s: %w", width, height, x, y, t.label, core.ErrOutOfBounds)
	}
	if uint32(len(pixels)) < width*height*4 {
		return fmt.Errorf("pixel data too short for %dx%d: %w", width, height, core.ErrInvalidSize)
	}
	for row := uint32(0); row < height; row++ {
		dst := ((y+row)*t.width + x) * 4
		src := row * width * 4
		copy(t.pixels[dst:dst+width*4], pixels[src:src+width*4])
	}
	d.Stats.TextureWrites++
	return nil
}

func (d *HeadlessDevice) CopyTexture(src, dst Texture, width, height uint32) error {
	if err := d.FailCopyTexture; err != nil {
		d.FailCopyTexture = nil
		return err
	}
	s, err := d.texture(src)
	if err != nil {
		return err
	}
	t, err := d.texture(dst)
	if err != nil {
		return err
	}
	if width > s.width || height > s.height || width > t.width || height > t.height {
		return fmt.Errorf("copy %dx%d from %s to %s: %w", width, height, s.label, t.label, core.ErrOutOfBounds)
	}
	for row := uint32(0); row < height; row++ {
		copy(t.pixels[row*t.width*4:row*t.width*4+width*4], s.pixels[row*s.width*4:row*s.width*4+width*4])
	}
	d.Stats.TextureCopies++
	return nil
}

func (d *HeadlessDevice) ReadTexture(tex Texture, x, y, width, height uint32) ([]byte, error) {
	t, err := d.texture(tex)
	if err != nil {
		return nil, err
	}
	if x+width > t.width || y+height > t.height {
		return nil, fmt.Errorf("read %dx%d at %d,%d from %s: %w", width, height, x, y, t.label, core.ErrOutOfBounds)
	}
	out := make([]byte, 0, width*height*4)
	for row := uint32(0); row < height; row++ {
		start := ((y+row)*t.width + x) * 4
		out = append(out, t.pixels[start:start+width*4]...)
	}
	return out, nil
}

func (d *HeadlessDevice) DestroyTexture(tex Texture) {
	if t, ok := tex.(*headlessTexture); ok && !t.destroyed {
		t.destroyed = true
		t.pixels = nil
		d.Stats.TexturesDestroyed++
	}
}

func (d *HeadlessDevice) Destroy() {}

// DrawCall is one recorded DrawIndexed with the bindings active at the time.
type DrawCall struct {
	VertexBuffer   Buffer
	IndexBuffer    Buffer
	InstanceBuffer Buffer
	InstanceOffset uint64
	IndexCount     uint32
	InstanceCount  uint32
	FirstIndex     uint32
	BaseVertex     int32
	FirstInstance  uint32
}

// RecordingPass stores draw calls instead of executing them.
type RecordingPass struct {
	vertex         Buffer
	instance       Buffer
	instanceOffset uint64
	index          Buffer
	Draws          []DrawCall
}

func NewRecordingPass() *RecordingPass {
	return &RecordingPass{}
}

func (p *RecordingPass) SetVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	switch slot {
	case SlotVertex:
		p.vertex = buf
	case SlotInstance:
		p.instance = buf
		p.instanceOffset = offset
	}
}

func (p *RecordingPass) SetIndexBuffer(buf Buffer, offset uint64) {
	p.index = buf
}

func (p *RecordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Draws = append(p.Draws, DrawCall{
		VertexBuffer:   p.vertex,
		IndexBuffer:    p.index,
		InstanceBuffer: p.instance,
		InstanceOffset: p.instanceOffset,
		IndexCount:     indexCount,
		InstanceCount:  instanceCount,
		FirstIndex:     firstIndex,
		BaseVertex:     baseVertex,
		FirstInstance:  firstInstance,
	})
}

// Reset clears recorded draws and bindings.
func (p *RecordingPass) Reset() {
	*p = RecordingPass{Draws: p.Draws[:0]}
}
