// Package blockfile implements the block-aligned I/O facade (C5): the
// single byte-addressable surface the FUSE adapter and CLI read and write
// through. It translates arbitrary byte ranges into whole-block operations
// against the dirty cache (C2+C3) and the backing store (C1), sampling a
// fresh random delay for every block a write actually dirties.
package blockfile

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/vi/outoforderfs/pkg/blockstore"
	"github.com/vi/outoforderfs/pkg/bufpool"
	"github.com/vi/outoforderfs/pkg/dirtycache"
)

// ErrNegativeOffset is returned when a caller requests a read or write at a
// negative byte offset.
var ErrNegativeOffset = errors.New("blockfile: negative offset")

// DelayRange is the inclusive uniform range a write's commit deadline is
// sampled from, relative to the moment the write dirties a block.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Facade is the block-aligned view over a dirty cache and a backing store.
// Every Read or Write call is decomposed into single-block operations: each
// block touched is read or written in exactly one step against the cache,
// falling through to the store on a cache miss.
type Facade struct {
	cache     *dirtycache.Cache
	store     blockstore.Store
	pool      *bufpool.Pool
	blockSize int
	size      int64
	delay     DelayRange

	rngMu sync.Mutex
	rng   *rand.Rand

	cursorMu sync.Mutex
	cursor   int64
}

// New creates a Facade over cache and store. size is the fixed total size
// of the mirrored file in bytes (never changes: truncation and resizing
// are out of scope). delay bounds the uniform random deadline sampled for
// every newly dirtied block; seed makes that sampling reproducible.
func New(cache *dirtycache.Cache, store blockstore.Store, blockSize int, size int64, delay DelayRange, seed int64) *Facade {
	if blockSize <= 0 {
		panic("blockfile: blockSize must be positive")
	}
	return &Facade{
		cache:     cache,
		store:     store,
		pool:      bufpool.New(blockSize),
		blockSize: blockSize,
		size:      size,
		delay:     delay,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Size returns the fixed total size of the mirrored file.
func (f *Facade) Size() int64 { return f.size }

// BlockSize returns the fixed block size blocks are addressed in.
func (f *Facade) BlockSize() int { return f.blockSize }

// nextDeadline samples a uniform random deadline in [now+Min, now+Max].
func (f *Facade) nextDeadline(now time.Time) time.Time {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()

	span := f.delay.Max - f.delay.Min
	var d time.Duration
	if span > 0 {
		d = f.delay.Min + time.Duration(f.rng.Int63n(int64(span)+1))
	} else {
		d = f.delay.Min
	}
	return now.Add(d)
}

// ReadAt implements io.ReaderAt over the mirrored file. It never reads more
// than one block from the cache or store in a single underlying access,
// looping over every block the requested range spans.
func (f *Facade) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off >= f.size {
		return 0, io.EOF
	}
	want := len(p)
	if int64(len(p))+off > f.size {
		p = p[:f.size-off]
	}

	total := 0
	remaining := p
	for len(remaining) > 0 {
		block := uint64(off) / uint64(f.blockSize)
		blockOff := int(uint64(off) % uint64(f.blockSize))
		n := f.blockSize - blockOff
		if n > len(remaining) {
			n = len(remaining)
		}

		payload, err := f.readBlock(block)
		if err != nil {
			return total, err
		}
		copy(remaining[:n], payload[blockOff:blockOff+n])

		remaining = remaining[n:]
		off += int64(n)
		total += n
	}

	var err error
	if total < want {
		err = io.EOF
	}
	return total, err
}

// WriteAt implements io.WriterAt over the mirrored file. Whole blocks
// touched entirely by p are written directly; blocks only partially
// touched are read-modify-written so the untouched bytes survive. Every
// block this call dirties gets its own freshly sampled deadline.
func (f *Facade) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off+int64(len(p)) > f.size {
		return 0, io.ErrShortWrite
	}

	total := 0
	remaining := p
	for len(remaining) > 0 {
		block := uint64(off) / uint64(f.blockSize)
		blockOff := int(uint64(off) % uint64(f.blockSize))
		n := f.blockSize - blockOff
		if n > len(remaining) {
			n = len(remaining)
		}

		var payload []byte
		if n == f.blockSize {
			payload = f.pool.Get()
			copy(payload, remaining[:n])
		} else {
			existing, err := f.readBlock(block)
			if err != nil {
				return total, err
			}
			payload = f.pool.Get()
			copy(payload, existing)
			copy(payload[blockOff:blockOff+n], remaining[:n])
		}

		deadline := f.nextDeadline(time.Now())
		if err := f.cache.Put(block, payload, deadline); err != nil {
			return total, err
		}
		f.pool.Put(payload)

		remaining = remaining[n:]
		off += int64(n)
		total += n
	}
	return total, nil
}

// readBlock returns the current full-block contents for block i: the
// dirty payload if one is pending, otherwise a read-through from the
// backing store.
func (f *Facade) readBlock(i uint64) ([]byte, error) {
	if payload, ok := f.cache.Read(i); ok {
		return payload, nil
	}

	buf := make([]byte, f.blockSize)
	off := int64(i) * int64(f.blockSize)
	n, err := f.store.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	for j := n; j < len(buf); j++ {
		buf[j] = 0
	}
	return buf, nil
}

// Seek implements io.Seeker against an internal cursor used by Read/Write.
func (f *Facade) Seek(offset int64, whence int) (int64, error) {
	f.cursorMu.Lock()
	defer f.cursorMu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.cursor + offset
	case io.SeekEnd:
		next = f.size + offset
	default:
		return 0, errors.New("blockfile: invalid whence")
	}
	if next < 0 {
		return 0, ErrNegativeOffset
	}
	f.cursor = next
	return next, nil
}

// Read implements io.Reader against the internal cursor.
func (f *Facade) Read(p []byte) (int, error) {
	f.cursorMu.Lock()
	off := f.cursor
	f.cursorMu.Unlock()

	n, err := f.ReadAt(p, off)

	f.cursorMu.Lock()
	f.cursor = off + int64(n)
	f.cursorMu.Unlock()
	return n, err
}

// Write implements io.Writer against the internal cursor.
func (f *Facade) Write(p []byte) (int, error) {
	f.cursorMu.Lock()
	off := f.cursor
	f.cursorMu.Unlock()

	n, err := f.WriteAt(p, off)

	f.cursorMu.Lock()
	f.cursor = off + int64(n)
	f.cursorMu.Unlock()
	return n, err
}

// Flush is a no-op: there is no separate write buffer to drain beyond the
// dirty cache itself, and forcing writeback early would defeat the whole
// point of this filesystem.
func (f *Facade) Flush() error { return nil }

var (
	_ io.ReaderAt = (*Facade)(nil)
	_ io.WriterAt = (*Facade)(nil)
	_ io.Seeker   = (*Facade)(nil)
	_ io.Reader   = (*Facade)(nil)
	_ io.Writer   = (*Facade)(nil)
)
