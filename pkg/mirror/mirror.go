// Package mirror assembles the block-addressed backing store (C1), the
// dirty cache (C2+C3), the writeback engine (C4), and the block-aligned
// facade (C5) into the single mirrored file the rest of the system reads
// and writes through. It is the lifecycle component (C6) counterpart that
// owns construction and teardown order; cmd/outoforderfs wires it to the
// CLI and to FUSE.
package mirror

import (
	"fmt"
	"os"
	"time"

	"github.com/vi/outoforderfs/internal/logger"
	"github.com/vi/outoforderfs/pkg/blockfile"
	"github.com/vi/outoforderfs/pkg/blockstore"
	"github.com/vi/outoforderfs/pkg/dirtycache"
	"github.com/vi/outoforderfs/pkg/metrics"
	"github.com/vi/outoforderfs/pkg/writeback"
)

// Config holds everything needed to open a mirrored file.
type Config struct {
	// SourcePath is the real file whose bytes are mirrored. It must
	// already exist; it is opened read-write and never truncated.
	SourcePath string
	// BlockSize is the fixed size, in bytes, every block is addressed in.
	BlockSize int
	// MaxDirtyBlocks bounds the dirty cache (M in spec terms).
	MaxDirtyBlocks int
	// Delay bounds the uniform random commit delay applied to every
	// newly dirtied block.
	Delay blockfile.DelayRange
	// Seed seeds the delay sampler. Zero is a valid seed.
	Seed int64
	// Recorder receives cache and writeback metrics; nil disables them.
	Recorder metrics.Recorder
}

// Mirror owns the open source file, the dirty cache, the writeback engine,
// and the facade built on top of them.
type Mirror struct {
	file   *os.File
	store  *blockstore.File
	cache  *dirtycache.Cache
	engine *writeback.Engine
	facade *blockfile.Facade
}

// Open opens cfg.SourcePath read-write and assembles the mirror. It does
// not start the writeback engine — call Start for that.
func Open(cfg Config) (*Mirror, error) {
	if cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("mirror: block size must be positive, got %d", cfg.BlockSize)
	}
	if cfg.MaxDirtyBlocks <= 0 {
		return nil, fmt.Errorf("mirror: max dirty blocks must be positive, got %d", cfg.MaxDirtyBlocks)
	}

	f, err := os.OpenFile(cfg.SourcePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mirror: opening source file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mirror: statting source file: %w", err)
	}
	size := info.Size()
	if size <= 0 {
		f.Close()
		return nil, fmt.Errorf("mirror: source file must have strictly positive length, got %d", size)
	}

	store := blockstore.NewFile(f)
	cache := dirtycache.New(cfg.MaxDirtyBlocks, cfg.Recorder)
	facade := blockfile.New(cache, store, cfg.BlockSize, size, cfg.Delay, cfg.Seed)
	engine := writeback.New(cache, store, cfg.BlockSize, time.Now, cfg.Recorder)

	logger.Info("mirror opened",
		logger.Path(cfg.SourcePath),
		logger.Length(int(size)),
		logger.Capacity(cfg.MaxDirtyBlocks),
	)

	return &Mirror{
		file:   f,
		store:  store,
		cache:  cache,
		engine: engine,
		facade: facade,
	}, nil
}

// Start launches the writeback engine's worker goroutine.
func (m *Mirror) Start() { m.engine.Start() }

// Stop stops the writeback engine and returns the number of blocks still
// dirty at the moment it stopped — the blocks that were thrown away.
func (m *Mirror) Stop() int { return m.engine.Stop() }

// Facade returns the block-aligned I/O surface for this mirror.
func (m *Mirror) Facade() *blockfile.Facade { return m.facade }

// Close releases the underlying file. Stop must be called first; Close
// does not stop the engine itself.
func (m *Mirror) Close() error {
	return m.store.Close()
}

// DirtyCount returns the number of blocks currently dirty.
func (m *Mirror) DirtyCount() int { return m.cache.Size() }
