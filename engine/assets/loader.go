package assets

import (
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type Loader interface {
	Load(path string) (*metadata.Resource, error)
}

// resourceTypeNone marks files the manager ignores.
const resourceTypeNone metadata.ResourceType = -1

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	case ".ttf", ".otf":
		return metadata.ResourceTypeSystemFont
	case ".yaml", ".yml":
		return metadata.ResourceTypeSpriteSheet
	default:
		return resourceTypeNone
	}
}
