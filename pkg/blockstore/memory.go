package blockstore

import (
	"io"
	"sync"
)

// Memory is an in-memory Store, used by tests that exercise the cache,
// writeback engine, and facade without touching the real filesystem.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewMemory creates an in-memory store pre-sized to size bytes, all zero.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// ReadAt implements Store.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	var err error
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

// WriteAt implements Store. The backing slice grows to fit if necessary,
// mirroring a sparse file growing on write.
func (m *Memory) WriteAt(p []byte, off int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return nil
}

// Len implements Store.
func (m *Memory) Len() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.data)), nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Snapshot returns a copy of the current backing bytes, for test assertions.
func (m *Memory) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

var _ Store = (*Memory)(nil)
