package metadata

import (
	"hash/fnv"
)

/** @brief A byte range within a buffer. */
type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}

func GetAlignedRange(offset, size, granularity uint64) MemoryRange {
	return MemoryRange{
		Offset: GetAligned(offset, granularity),
		Size:   GetAligned(size, granularity),
	}
}

func GetAligned(operand, granularity uint64) uint64 {
	return (operand + (granularity - 1)) &^ (granularity - 1)
}

// ContentHash returns the FNV-1a 64 hash of the concatenated parts.
func ContentHash(parts ...[]byte) uint64 {
	hasher := fnv.New64a()
	for _, p := range parts {
		_, _ = hasher.Write(p)
	}
	return hasher.Sum64()
}
