package core

import (
	"errors"
)

var (
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrNotFound           = errors.New("not found")
	ErrInvalidSize        = errors.New("invalid size")
	ErrUnknownFont        = errors.New("unknown font")
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrBackendUnavailable = errors.New("graphics backend unavailable")
	ErrUnknown            = errors.New("unknown")
)
