package metadata

import "github.com/spaghettifunk/prism/engine/math"

/** @brief How a material samples the atlas. */
type TextureKind int

const (
	/** @brief Untextured: samples the reserved white pixel. */
	TextureNone TextureKind = iota
	/** @brief Samples the whole region packed under Label. */
	TextureFull
	/** @brief Samples a sub-rectangle of the region packed under Label. */
	TexturePartial
)

type MaterialTexture struct {
	Kind  TextureKind
	Label string
	// Sub is relative to the region's top-left corner. Only used by TexturePartial.
	Sub Rect
}

/**
 * @brief Surface properties of a drawable: a tint and an atlas reference.
 */
type MaterialConfig struct {
	Color   math.Color
	Texture MaterialTexture
}

func NewUntextured(color math.Color) MaterialConfig {
	return MaterialConfig{Color: color}
}

func NewTextured(label string, color math.Color) MaterialConfig {
	return MaterialConfig{Color: color, Texture: MaterialTexture{Kind: TextureFull, Label: label}}
}

func NewPartiallyTextured(label string, sub Rect, color math.Color) MaterialConfig {
	return MaterialConfig{Color: color, Texture: MaterialTexture{Kind: TexturePartial, Label: label, Sub: sub}}
}
