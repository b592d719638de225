package loaders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"gopkg.in/yaml.v3"
)

type SpriteSheetLoader struct{}

// LoadSpriteSheet parses a YAML sprite sheet descriptor:
//
//	image: hero.png
//	scale: 2
//	frames:
//	  - {x: 0, y: 0, w: 16, h: 16, duration: 0.1}
func LoadSpriteSheet(data []byte) (*metadata.SpriteSheetResourceData, error) {
	sheet := &metadata.SpriteSheetResourceData{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(sheet); err != nil {
		return nil, fmt.Errorf("failed to parse sprite sheet: %w", err)
	}
	if sheet.Image == "" {
		return nil, fmt.Errorf("sprite sheet has no image: %w", core.ErrNotFound)
	}
	if len(sheet.Frames) == 0 {
		return nil, fmt.Errorf("sprite sheet %s has no frames: %w", sheet.Image, core.ErrInvalidSize)
	}
	for i, f := range sheet.Frames {
		if f.Width == 0 || f.Height == 0 {
			return nil, fmt.Errorf("sprite sheet %s frame %d is empty: %w", sheet.Image, i, core.ErrInvalidSize)
		}
		if f.Duration <= 0 {
			sheet.Frames[i].Duration = 0.1
		}
	}
	if sheet.Scale == 0 {
		sheet.Scale = 1
	}
	return sheet, nil
}

func (sl *SpriteSheetLoader) Load(path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sheet, err := LoadSpriteSheet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// image paths are relative to the descriptor
	if !filepath.IsAbs(sheet.Image) {
		sheet.Image = filepath.Join(filepath.Dir(path), sheet.Image)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeSpriteSheet,
		Name:     LabelFor(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     sheet,
	}, nil
}
