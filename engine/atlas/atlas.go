package atlas

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// WhiteLabel is the label of the opaque 1x1 region sampled by untextured materials.
const WhiteLabel = "__white"

type AtlasConfig struct {
	Label       string
	InitialSize uint32
	MaxSize     uint32
	Padding     uint32
}

// Usage summarizes how much of the canvas is allocated.
type Usage struct {
	Regions     int
	UsedPixels  uint64
	TotalPixels uint64
	Width       uint32
	Height      uint32
}

func (u Usage) Ratio() float64 {
	if u.TotalPixels == 0 {
		return 0
	}
	return float64(u.UsedPixels) / float64(u.TotalPixels)
}

// Atlas owns the canvas texture and every region packed into it. Regions are
// never evicted. When nothing fits the canvas doubles, old pixels are copied
// on the GPU and every UV is recomputed.
type Atlas struct {
	device  gpu.Device
	config  AtlasConfig
	texture gpu.Texture
	packer  *Packer

	regions   map[string]*metadata.AtlasRegion
	glyphSets map[string]*GlyphSet

	generation uint64
	onGrow     func(width, height uint32)

	// revision increases whenever a label gets a new region. packedAt keeps
	// the revision each label last changed at.
	revision uint64
	packedAt map[string]uint64
}

func NewAtlas(device gpu.Device, config AtlasConfig) (*Atlas, error) {
	if config.Label == "" {
		config.Label = "atlas"
	}
	if config.MaxSize == 0 || config.MaxSize > device.MaxTextureSize() {
		config.MaxSize = device.MaxTextureSize()
	}
	if config.InitialSize == 0 || config.InitialSize > config.MaxSize {
		return nil, fmt.Errorf("atlas initial size %d with max %d: %w", config.InitialSize, config.MaxSize, core.ErrInvalidSize)
	}

	tex, err := device.CreateTexture(gpu.TextureDescriptor{
		Label:  config.Label,
		Width:  config.InitialSize,
		Height: config.InitialSize,
		Format: gpu.TextureFormatRGBA8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create atlas texture: %w", err)
	}

	a := &Atlas{
		device:    device,
		config:    config,
		texture:   tex,
		packer:    NewPacker(config.InitialSize, config.InitialSize, config.Padding),
		regions:   make(map[string]*metadata.AtlasRegion),
		glyphSets: make(map[string]*GlyphSet),
		packedAt:  make(map[string]uint64),
	}

	if _, err := a.PackPixels(WhiteLabel, 1, 1, []byte{255, 255, 255, 255}); err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("failed to reserve white region: %w", err)
	}
	core.LogDebug("atlas %s created at %dx%d (max %d)", config.Label, config.InitialSize, config.InitialSize, config.MaxSize)
	return a, nil
}

// OnGrow registers fn to be called after every successful growth.
func (a *Atlas) OnGrow(fn func(width, height uint32)) {
	a.onGrow = fn
}

func (a *Atlas) Texture() gpu.Texture {
	return a.texture
}

func (a *Atlas) Size() (uint32, uint32) {
	return a.packer.Size()
}

// Generation increases every time the canvas grows and UVs change.
func (a *Atlas) Generation() uint64 {
	return a.generation
}

// Revision increases every time a label is packed or moved to a new region.
func (a *Atlas) Revision() uint64 {
	return a.revision
}

// ChangedSince reports whether label got a new region after revision.
func (a *Atlas) ChangedSince(label string, revision uint64) bool {
	return a.packedAt[label] > revision
}

func (a *Atlas) White() metadata.AtlasRegion {
	return *a.regions[WhiteLabel]
}

func (a *Atlas) Region(label string) (metadata.AtlasRegion, bool) {
	r, ok := a.regions[label]
	if !ok {
		return metadata.AtlasRegion{}, false
	}
	return *r, true
}

// SubRegion returns a region covering x,y,w,h inside the region packed under label.
func (a *Atlas) SubRegion(label string, x, y, width, height uint32) (metadata.AtlasRegion, error) {
	r, ok := a.regions[label]
	if !ok {
		return metadata.AtlasRegion{}, fmt.Errorf("atlas region %q: %w", label, core.ErrNotFound)
	}
	if x+width > r.Width || y+height > r.Height {
		return metadata.AtlasRegion{}, fmt.Errorf("sub-region %d,%d %dx%d of %q (%dx%d): %w", x, y, width, height, label, r.Width, r.Height, core.ErrOutOfBounds)
	}
	w, h := a.Size()
	return r.Sub(x, y, width, height, w, h), nil
}

// PackImage packs decoded image data under label. Packing an already known
// label returns the cached region without touching the canvas.
func (a *Atlas) PackImage(label string, img *metadata.ImageResourceData) (metadata.AtlasRegion, error) {
	return a.PackPixels(label, img.Width, img.Height, img.Pixels)
}

// PackPixels packs raw RGBA8 pixels. An empty label gets a generated one.
func (a *Atlas) PackPixels(label string, width, height uint32, rgba []byte) (metadata.AtlasRegion, error) {
	if label == "" {
		label = uuid.NewString()
	}
	if r, ok := a.regions[label]; ok {
		return *r, nil
	}
	rect, err := a.allocate(width, height, rgba)
	if err != nil {
		return metadata.AtlasRegion{}, fmt.Errorf("failed to pack %q: %w", label, err)
	}
	if err := a.upload(rect, rgba); err != nil {
		return metadata.AtlasRegion{}, fmt.Errorf("failed to upload %q: %w", label, err)
	}
	return a.commit(label, rect), nil
}

// upload writes pixels into rect, handing rect back to the packer on failure.
func (a *Atlas) upload(rect metadata.Rect, rgba []byte) error {
	if err := a.device.WriteTexture(a.texture, rect.X, rect.Y, rect.Width, rect.Height, rgba); err != nil {
		a.packer.Release(rect)
		return err
	}
	return nil
}

// commit points label at rect.
func (a *Atlas) commit(label string, rect metadata.Rect) metadata.AtlasRegion {
	w, h := a.Size()
	region := metadata.NewAtlasRegion(rect, w, h)
	a.regions[label] = &region
	a.revision++
	a.packedAt[label] = a.revision
	return region
}

// Replace swaps the pixels behind label. Same-sized images are rewritten in
// place; otherwise a new region is packed and label points at it.
func (a *Atlas) Replace(label string, img *metadata.ImageResourceData) (metadata.AtlasRegion, error) {
	r, ok := a.regions[label]
	if !ok {
		return a.PackImage(label, img)
	}
	if r.Width == img.Width && r.Height == img.Height {
		if err := a.device.WriteTexture(a.texture, r.X, r.Y, img.Width, img.Height, img.Pixels); err != nil {
			return metadata.AtlasRegion{}, fmt.Errorf("failed to rewrite %q: %w", label, err)
		}
		return *r, nil
	}
	rect, err := a.allocate(img.Width, img.Height, img.Pixels)
	if err != nil {
		return metadata.AtlasRegion{}, fmt.Errorf("failed to repack %q: %w", label, err)
	}
	if err := a.upload(rect, img.Pixels); err != nil {
		return metadata.AtlasRegion{}, fmt.Errorf("failed to upload %q: %w", label, err)
	}
	region := a.commit(label, rect)
	core.LogDebug("atlas region %q repacked at %d,%d", label, rect.X, rect.Y)
	return region, nil
}

// ReadRegion reads the pixels behind label back from the canvas.
func (a *Atlas) ReadRegion(label string) ([]byte, error) {
	r, ok := a.regions[label]
	if !ok {
		return nil, fmt.Errorf("atlas region %q: %w", label, core.ErrNotFound)
	}
	return a.device.ReadTexture(a.texture, r.X, r.Y, r.Width, r.Height)
}

func (a *Atlas) allocate(width, height uint32, rgba []byte) (metadata.Rect, error) {
	if width == 0 || height == 0 {
		return metadata.Rect{}, fmt.Errorf("region %dx%d: %w", width, height, core.ErrInvalidSize)
	}
	if uint64(len(rgba)) < uint64(width)*uint64(height)*4 {
		return metadata.Rect{}, fmt.Errorf("%d bytes for %dx%d RGBA: %w", len(rgba), width, height, core.ErrInvalidSize)
	}
	if width+a.config.Padding > a.config.MaxSize || height+a.config.Padding > a.config.MaxSize {
		return metadata.Rect{}, fmt.Errorf("region %dx%d larger than max atlas size %d: %w", width, height, a.config.MaxSize, core.ErrCapacityExceeded)
	}
	for {
		if rect, ok := a.packer.Pack(width, height); ok {
			return rect, nil
		}
		if err := a.grow(); err != nil {
			return metadata.Rect{}, err
		}
	}
}

func (a *Atlas) grow() error {
	oldW, oldH := a.Size()
	newW, newH := min(oldW*2, a.config.MaxSize), min(oldH*2, a.config.MaxSize)
	if newW == oldW && newH == oldH {
		return fmt.Errorf("atlas full at %dx%d: %w", oldW, oldH, core.ErrCapacityExceeded)
	}

	tex, err := a.device.CreateTexture(gpu.TextureDescriptor{
		Label:  a.config.Label,
		Width:  newW,
		Height: newH,
		Format: gpu.TextureFormatRGBA8,
	})
	if err != nil {
		return fmt.Errorf("failed to create %dx%d atlas texture: %w", newW, newH, err)
	}
	if err := a.device.CopyTexture(a.texture, tex, oldW, oldH); err != nil {
		a.device.DestroyTexture(tex)
		return fmt.Errorf("failed to copy atlas contents: %w", err)
	}

	old := a.texture
	a.texture = tex
	a.packer.Grow(newW, newH)
	for _, r := range a.regions {
		r.Refresh(newW, newH)
	}
	for _, gs := range a.glyphSets {
		gs.refresh(newW, newH)
	}
	a.device.DestroyTexture(old)
	a.generation++

	core.LogInfo("atlas %s grew %dx%d -> %dx%d", a.config.Label, oldW, oldH, newW, newH)
	if a.onGrow != nil {
		a.onGrow(newW, newH)
	}
	return nil
}

func (a *Atlas) Usage() Usage {
	w, h := a.Size()
	return Usage{
		Regions:     len(a.regions),
		UsedPixels:  a.packer.Used(),
		TotalPixels: uint64(w) * uint64(h),
		Width:       w,
		Height:      h,
	}
}

// Labels returns every packed label in sorted order.
func (a *Atlas) Labels() []string {
	out := make([]string, 0, len(a.regions))
	for l := range a.regions {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (a *Atlas) Destroy() {
	if a.texture != nil {
		a.device.DestroyTexture(a.texture)
		a.texture = nil
	}
}
