package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Image resource type. */
	ResourceTypeImage ResourceType = iota
	/** @brief Bitmap font resource type. */
	ResourceTypeBitmapFont
	/** @brief System font resource type. */
	ResourceTypeSystemFont
	/** @brief Sprite sheet resource type (frame list over an image). */
	ResourceTypeSpriteSheet
	/** @brief Custom resource type. Used by loaders outside the core engine. */
	ResourceTypeCustom
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeBitmapFont:
		return "bitmap_font"
	case ResourceTypeSystemFont:
		return "system_font"
	case ResourceTypeSpriteSheet:
		return "sprite_sheet"
	default:
		return "custom"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The type of the loader which handles this resource. */
	Type ResourceType
	/** @brief The name of the resource, also its atlas label. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/** @brief One animation frame of a sprite sheet, in pixels of the sheet image. */
type SpriteFrame struct {
	X        uint32  `yaml:"x"`
	Y        uint32  `yaml:"y"`
	Width    uint32  `yaml:"w"`
	Height   uint32  `yaml:"h"`
	Duration float32 `yaml:"duration"`
}

/** @brief A sprite sheet descriptor: the image to pack and its frames. */
type SpriteSheetResourceData struct {
	Image  string        `yaml:"image"`
	Scale  float32       `yaml:"scale"`
	Frames []SpriteFrame `yaml:"frames"`
}

/** @brief A decoded system (TrueType/OpenType) font. */
type SystemFontResourceData struct {
	Face string
	// Binary holds the raw font file, needed by the shaper and the rasterizer.
	Binary []byte
}
