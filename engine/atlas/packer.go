// Package atlas packs images and glyphs into a single growable texture.
package atlas

import (
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Packer allocates rectangles out of a list of free rectangles. Every
// allocation reserves Padding extra pixels to its right and below it.
type Packer struct {
	width   uint32
	height  uint32
	padding uint32
	free    []metadata.Rect
	used    uint64
}

func NewPacker(width, height, padding uint32) *Packer {
	return &Packer{
		width:   width,
		height:  height,
		padding: padding,
		free:    []metadata.Rect{{X: 0, Y: 0, Width: width, Height: height}},
	}
}

// better reports whether candidate a beats b: smaller area, then lower y, then lower x.
func better(a, b metadata.Rect) bool {
	if a.Area() != b.Area() {
		return a.Area() < b.Area()
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// Pack finds room for a width x height region. It returns false when no free
// rectangle can hold it with padding.
func (p *Packer) Pack(width, height uint32) (metadata.Rect, bool) {
	pw, ph := width+p.padding, height+p.padding

	best := -1
	for i, f := range p.free {
		if f.Width < pw || f.Height < ph {
			continue
		}
		if best < 0 || better(f, p.free[best]) {
			best = i
		}
	}
	if best < 0 {
		return metadata.Rect{}, false
	}

	f := p.free[best]
	p.free = append(p.free[:best], p.free[best+1:]...)

	for _, r := range []metadata.Rect{
		{X: f.X + pw, Y: f.Y, Width: f.Width - pw, Height: ph},
		{X: f.X, Y: f.Y + ph, Width: pw, Height: f.Height - ph},
		{X: f.X + pw, Y: f.Y + ph, Width: f.Width - pw, Height: f.Height - ph},
	} {
		if !r.Empty() {
			p.free = append(p.free, r)
		}
	}

	p.used += uint64(width) * uint64(height)
	return metadata.Rect{X: f.X, Y: f.Y, Width: width, Height: height}, true
}

// Release hands a rectangle returned by Pack back to the free list.
func (p *Packer) Release(rect metadata.Rect) {
	p.free = append(p.free, metadata.Rect{X: rect.X, Y: rect.Y, Width: rect.Width + p.padding, Height: rect.Height + p.padding})
	p.used -= uint64(rect.Width) * uint64(rect.Height)
}

// Grow extends the canvas, adding the new right and bottom strips as free space.
func (p *Packer) Grow(width, height uint32) {
	if width > p.width {
		p.free = append(p.free, metadata.Rect{X: p.width, Y: 0, Width: width - p.width, Height: height})
	}
	if height > p.height {
		p.free = append(p.free, metadata.Rect{X: 0, Y: p.height, Width: p.width, Height: height - p.height})
	}
	p.width, p.height = width, height
}

func (p *Packer) Size() (uint32, uint32) {
	return p.width, p.height
}

// Used is the number of pixels handed out, excluding padding.
func (p *Packer) Used() uint64 {
	return p.used
}

// Free returns a copy of the free rectangle list.
func (p *Packer) Free() []metadata.Rect {
	return append([]metadata.Rect(nil), p.free...)
}
