package fiber

import (
	"github.com/vango-dev/loom/internal/errors"
)

// Sentinels for errors.Is. Engine errors are *errors.LoomError values and
// match these by code.
var (
	ErrMalformedElement = errors.New("E001")
	ErrSurfaceOperation = errors.New("E002")
	ErrHookOrder        = errors.New("E003")
	ErrComponentPanic   = errors.New("E004")
	ErrClosed           = errors.New("E005")
	ErrTooManyUpdates   = errors.New("E006")
)

func surfaceError(op string, err error) error {
	return errors.New("E002").WithOp(op).Wrap(err)
}
