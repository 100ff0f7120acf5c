package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Using shared constants keeps
// log lines greppable across every component that logs.
const (
	KeyBlock     = "block"
	KeyOffset    = "offset"
	KeyLength    = "length"
	KeyDeadline  = "deadline"
	KeyDelay     = "delay_ms"
	KeyDirty     = "dirty_count"
	KeyCapacity  = "capacity"
	KeyBlockSize = "block_size"
	KeyPath      = "path"
	KeyErr       = "error"
	KeyDuration  = "duration_ms"
)

// Block returns a slog.Attr for a block index.
func Block(i uint64) slog.Attr {
	return slog.Uint64(KeyBlock, i)
}

// Offset returns a slog.Attr for a byte offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Length returns a slog.Attr for a byte length.
func Length(n int) slog.Attr {
	return slog.Int(KeyLength, n)
}

// Dirty returns a slog.Attr for the current dirty block count.
func Dirty(n int) slog.Attr {
	return slog.Int(KeyDirty, n)
}

// Capacity returns a slog.Attr for the configured dirty-block capacity.
func Capacity(n int) slog.Attr {
	return slog.Int(KeyCapacity, n)
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyErr, err.Error())
}

// Duration returns a slog.Attr for an elapsed duration in milliseconds.
func Duration(ms float64) slog.Attr {
	return slog.String(KeyDuration, fmt.Sprintf("%.3f", ms))
}
