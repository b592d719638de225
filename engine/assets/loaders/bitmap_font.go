package loaders

import (
	"fmt"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type BitmapFontLoader struct{}

// LoadBitmapFont reads an AngelCode .fnt descriptor together with its page
// images, which are resolved relative to the descriptor.
func LoadBitmapFont(path string) (*bmfont.BitmapFont, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load bitmap font %s: %w", path, err)
	}
	if len(font.Descriptor.Chars) == 0 {
		return nil, fmt.Errorf("bitmap font %s has no characters", path)
	}
	return font, nil
}

func (fl *BitmapFontLoader) Load(path string) (*metadata.Resource, error) {
	font, err := LoadBitmapFont(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeBitmapFont,
		Name:     LabelFor(path),
		FullPath: path,
		DataSize: uint64(len(font.Descriptor.Chars)),
		Data:     font,
	}, nil
}
