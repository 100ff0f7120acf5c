// Package fuseadapter binds the block-aligned facade (C5) to the kernel
// via github.com/hanwen/go-fuse/v2's fs package. The mountpoint exposes
// exactly one regular file — there is no directory tree, so the root
// inode itself reports S_IFREG and answers getattr/open/read/write
// directly, following the modern fs.Inode-embedding API (NodeGetattrer,
// NodeOpener, FileReader, FileWriter) rather than the older nodefs API.
package fuseadapter

import (
	"context"
	"io"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/vi/outoforderfs/internal/logger"
	"github.com/vi/outoforderfs/pkg/blockfile"
)

// attrCacheTimeout is how long the kernel is told it may cache the file's
// attributes before re-querying getattr.
const attrCacheTimeout = 10 * time.Second

// Root is the single inode exposed at the mountpoint. It represents the
// mirrored file itself; there are no children to look up.
type Root struct {
	fs.Inode

	facade    *blockfile.Facade
	startedAt time.Time
}

var (
	_ fs.InodeEmbedder = (*Root)(nil)
	_ fs.NodeGetattrer = (*Root)(nil)
	_ fs.NodeOpener    = (*Root)(nil)

	_ fs.FileReader  = (*fileHandle)(nil)
	_ fs.FileWriter  = (*fileHandle)(nil)
	_ fs.FileFlusher = (*fileHandle)(nil)
)

// NewRoot creates the root inode backing the mirrored file described by
// facade.
func NewRoot(facade *blockfile.Facade) *Root {
	return &Root{facade: facade, startedAt: time.Now()}
}

func (r *Root) fillAttr(out *fuse.Attr) {
	out.Mode = syscall.S_IFREG | 0o644
	out.Nlink = 1
	out.Size = uint64(r.facade.Size())
	out.Blksize = uint32(r.facade.BlockSize())
	out.Blocks = (out.Size + uint64(r.facade.BlockSize()) - 1) / uint64(r.facade.BlockSize())
	out.SetTimes(&r.startedAt, &r.startedAt, &r.startedAt)
}

// Getattr implements fs.NodeGetattrer.
func (r *Root) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	r.fillAttr(&out.Attr)
	out.SetTimeout(attrCacheTimeout)
	return 0
}

// Open implements fs.NodeOpener. Every open shares the same facade; there
// is no per-handle state beyond a reference back to the root.
func (r *Root) Open(_ context.Context, _ uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return &fileHandle{root: r}, 0, 0
}

type fileHandle struct {
	root *Root
}

// Read implements fs.FileReader.
func (h *fileHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.root.facade.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		logger.Error("fuse read failed", logger.Offset(off), logger.Length(len(dest)), logger.Err(err))
		return nil, fs.ToErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

// Write implements fs.FileWriter.
func (h *fileHandle) Write(_ context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.root.facade.WriteAt(data, off)
	if err != nil {
		logger.Error("fuse write failed", logger.Offset(off), logger.Length(len(data)), logger.Err(err))
		return uint32(n), fs.ToErrno(err)
	}
	return uint32(n), 0
}

// Flush implements fs.FileFlusher. There is no per-handle buffer to drain;
// the facade's own Flush is a documented no-op.
func (h *fileHandle) Flush(_ context.Context) syscall.Errno {
	if err := h.root.facade.Flush(); err != nil {
		return fs.ToErrno(err)
	}
	return 0
}

// Mount mounts the mirrored file at mountpoint and returns the running
// FUSE server. Call server.Unmount (or send SIGINT/SIGTERM and let the
// CLI's shutdown path do it) to tear the mount down.
func Mount(mountpoint string, facade *blockfile.Facade, debug bool) (*fuse.Server, error) {
	root := NewRoot(facade)
	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      debug,
			FsName:     "outoforderfs",
			Name:       "outoforderfs",
			AllowOther: false,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("fuse mounted", logger.Path(mountpoint))
	return server, nil
}
