package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type ImageLoader struct {
	// FlipY stores rows bottom-up.
	FlipY bool
}

// DecodeImage decodes any registered image format into tightly packed RGBA8.
// Decoder errors are returned wrapped, so errors.Is still matches them.
func DecodeImage(data []byte) (*metadata.ImageResourceData, error) {
	return decodeImage(data, false)
}

func decodeImage(data []byte, flipY bool) (*metadata.ImageResourceData, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	out := metadata.NewImageResourceData(img, flipY)
	if out.Width == 0 || out.Height == 0 {
		return nil, fmt.Errorf("decoded %s image is empty", format)
	}
	return out, nil
}

func (il *ImageLoader) Load(path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(data, il.FlipY)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     LabelFor(path),
		FullPath: path,
		DataSize: uint64(len(img.Pixels)),
		Data:     img,
	}, nil
}

// LabelFor derives the atlas label of a file: its base name without extension.
func LabelFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
