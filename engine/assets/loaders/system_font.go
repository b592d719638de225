package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

type SystemFontLoader struct{}

// LoadSystemFont validates a TrueType/OpenType binary and reads its family
// name. The binary is kept as is for the rasterizer and the shaper.
func LoadSystemFont(data []byte) (*metadata.SystemFontResourceData, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		face = ""
	}
	return &metadata.SystemFontResourceData{Face: face, Binary: data}, nil
}

func (fl *SystemFontLoader) Load(path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	font, err := LoadSystemFont(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeSystemFont,
		Name:     LabelFor(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     font,
	}, nil
}
