package dirtycache

import "errors"

// ErrClosed is returned to a caller blocked in Put when the cache is closed
// out from under it during shutdown, rather than leaving it blocked forever.
var ErrClosed = errors.New("dirtycache: closed")
