//go:build !unix

package core

import (
	"errors"
	"time"
)

func processCPUTime() (time.Duration, error) {
	return 0, errors.ErrUnsupported
}
