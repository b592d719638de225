// Package retained keeps drawable objects alive across frames and turns
// their changes into buffer writes and instanced draws.
package retained

import "strings"

// DirtyFlags records which parts of an object changed since it was last
// prepared.
type DirtyFlags uint8

const (
	DirtyTransform DirtyFlags = 1 << iota
	DirtyMaterial
	DirtyContent
	DirtyVisibility

	DirtyNone DirtyFlags = 0
	DirtyAll             = DirtyTransform | DirtyMaterial | DirtyContent | DirtyVisibility
)

func (f DirtyFlags) Has(bits DirtyFlags) bool {
	return f&bits == bits
}

func (f DirtyFlags) Any(bits DirtyFlags) bool {
	return f&bits != 0
}

func (f DirtyFlags) String() string {
	if f == DirtyNone {
		return "clean"
	}
	var parts []string
	for _, b := range []struct {
		bit  DirtyFlags
		name string
	}{
		{DirtyTransform, "transform"},
		{DirtyMaterial, "material"},
		{DirtyContent, "content"},
		{DirtyVisibility, "visibility"},
	} {
		if f.Has(b.bit) {
			parts = append(parts, b.name)
		}
	}
	return strings.Join(parts, "|")
}
