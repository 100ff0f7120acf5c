package blockstore

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(10)

	require.NoError(t, m.WriteAt([]byte{1, 2, 3}, 4))

	buf := make([]byte, 3)
	n, err := m.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, buf)
}

func TestMemoryReadAtShortReturnsEOF(t *testing.T) {
	m := NewMemory(4)

	buf := make([]byte, 4)
	n, err := m.ReadAt(buf, 2)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
}

func TestMemoryWriteAtGrowsBackingSlice(t *testing.T) {
	m := NewMemory(2)

	require.NoError(t, m.WriteAt([]byte{9, 9}, 5))

	length, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(7), length)
}

func TestMemoryClosedRejectsOperations(t *testing.T) {
	m := NewMemory(4)
	require.NoError(t, m.Close())

	_, err := m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)

	err = m.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileBackedByRealFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "blockstore")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(16))

	store := NewFile(f)
	defer store.Close()

	require.NoError(t, store.WriteAt([]byte{1, 2, 3, 4}, 4))

	buf := make([]byte, 4)
	n, err := store.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	length, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(16), length)
}
