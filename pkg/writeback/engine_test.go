package writeback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vi/outoforderfs/pkg/blockstore"
	"github.com/vi/outoforderfs/pkg/dirtycache"
)

const testBlockSize = 4

func TestEngineCommitsDueBlockToStore(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize * 2)
	cache := dirtycache.New(4, nil)
	clock := time.Now

	e := New(cache, store, testBlockSize, clock, nil)
	e.Start()
	defer e.Stop()

	require.NoError(t, cache.Put(1, []byte{9, 9, 9, 9}, clock().Add(5*time.Millisecond)))

	require.Eventually(t, func() bool {
		return !cache.Has(1)
	}, time.Second, time.Millisecond, "engine should have committed block 1")

	assert.Equal(t, []byte{9, 9, 9, 9}, store.Snapshot()[testBlockSize:])
}

func TestEngineDoesNotCommitBeforeDeadline(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize)
	cache := dirtycache.New(4, nil)
	clock := time.Now

	e := New(cache, store, testBlockSize, clock, nil)
	e.Start()
	defer e.Stop()

	require.NoError(t, cache.Put(0, []byte{1, 2, 3, 4}, clock().Add(200*time.Millisecond)))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, cache.Has(0), "block should still be dirty before its deadline")
	assert.Equal(t, []byte{0, 0, 0, 0}, store.Snapshot(), "store must be untouched before the deadline")

	require.Eventually(t, func() bool {
		return !cache.Has(0)
	}, time.Second, time.Millisecond)
}

func TestStopReturnsResidualDirtyCount(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize)
	cache := dirtycache.New(4, nil)
	clock := time.Now

	e := New(cache, store, testBlockSize, clock, nil)
	e.Start()

	require.NoError(t, cache.Put(0, []byte{1, 2, 3, 4}, clock().Add(time.Hour)))

	residual := e.Stop()
	assert.Equal(t, 1, residual, "block not yet due should still be dirty when stopped")
}

func TestStopIsIdempotent(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize)
	cache := dirtycache.New(4, nil)

	e := New(cache, store, testBlockSize, nil, nil)
	e.Start()

	first := e.Stop()
	second := e.Stop()
	assert.Equal(t, first, second)
}

func TestStartIsIdempotent(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize)
	cache := dirtycache.New(4, nil)

	e := New(cache, store, testBlockSize, nil, nil)
	e.Start()
	e.Start()
	defer e.Stop()

	require.NoError(t, cache.Put(0, []byte{1, 2, 3, 4}, time.Now()))
	require.Eventually(t, func() bool {
		return !cache.Has(0)
	}, time.Second, time.Millisecond)
}

func TestEngineCommitsMultipleBlocksOutOfInsertionOrder(t *testing.T) {
	store := blockstore.NewMemory(testBlockSize * 3)
	cache := dirtycache.New(8, nil)
	base := time.Now()

	e := New(cache, store, testBlockSize, func() time.Time { return time.Now() }, nil)
	e.Start()
	defer e.Stop()

	require.NoError(t, cache.Put(2, []byte{2, 2, 2, 2}, base.Add(30*time.Millisecond)))
	require.NoError(t, cache.Put(0, []byte{0, 0, 0, 9}, base.Add(10*time.Millisecond)))
	require.NoError(t, cache.Put(1, []byte{1, 1, 1, 1}, base.Add(20*time.Millisecond)))

	require.Eventually(t, func() bool {
		return cache.Size() == 0
	}, 2*time.Second, time.Millisecond)

	snap := store.Snapshot()
	assert.Equal(t, []byte{0, 0, 0, 9}, snap[0:4])
	assert.Equal(t, []byte{1, 1, 1, 1}, snap[4:8])
	assert.Equal(t, []byte{2, 2, 2, 2}, snap[8:12])
}
