package fuseadapter

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vi/outoforderfs/pkg/blockfile"
	"github.com/vi/outoforderfs/pkg/blockstore"
	"github.com/vi/outoforderfs/pkg/dirtycache"
)

func newTestFacade(t *testing.T) *blockfile.Facade {
	t.Helper()
	store := blockstore.NewMemory(16)
	cache := dirtycache.New(8, nil)
	return blockfile.New(cache, store, 4, 16, blockfile.DelayRange{Min: time.Millisecond, Max: time.Millisecond}, 1)
}

func TestGetattrReportsFixedAttributes(t *testing.T) {
	root := NewRoot(newTestFacade(t))

	var out fuse.AttrOut
	errno := root.Getattr(context.Background(), nil, &out)

	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(syscall.S_IFREG|0o644), out.Mode)
	assert.Equal(t, uint64(16), out.Size)
	assert.Equal(t, uint32(1), out.Nlink)
}

func TestOpenReturnsFileHandle(t *testing.T) {
	root := NewRoot(newTestFacade(t))

	fh, flags, errno := root.Open(context.Background(), 0)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(0), flags)
	assert.IsType(t, &fileHandle{}, fh)
}

func TestFileHandleWriteThenRead(t *testing.T) {
	root := NewRoot(newTestFacade(t))
	fh, _, errno := root.Open(context.Background(), 0)
	require.Equal(t, syscall.Errno(0), errno)
	h := fh.(*fileHandle)

	n, errno := h.Write(context.Background(), []byte{1, 2, 3, 4}, 0)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(4), n)

	buf := make([]byte, 4)
	res, errno := h.Read(context.Background(), buf, 0)
	require.Equal(t, syscall.Errno(0), errno)
	data, status := res.Bytes(buf)
	require.Equal(t, fuse.OK, status)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestFileHandleFlushIsNoop(t *testing.T) {
	root := NewRoot(newTestFacade(t))
	fh, _, _ := root.Open(context.Background(), 0)
	h := fh.(*fileHandle)

	assert.Equal(t, syscall.Errno(0), h.Flush(context.Background()))
}
