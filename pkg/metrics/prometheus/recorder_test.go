package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecorderRegistersAgainstGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	require.NotNil(t, r)

	mf, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mf, 6)
}

func TestRecorderSetDirtyReportsGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg).(*recorder)

	r.SetDirty(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(r.dirtyBlocks))

	r.SetDirty(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(r.dirtyBlocks))
}

func TestRecorderObserveFlushIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg).(*recorder)

	r.ObserveFlush(4096, 5*time.Millisecond)
	r.ObserveFlush(4096, 10*time.Millisecond)
	assert.Equal(t, float64(2), testutil.ToFloat64(r.flushesTotal))

	r.ObserveFlushError()
	assert.Equal(t, float64(1), testutil.ToFloat64(r.flushErrorsTotal))

	r.IncCapacityBlocked()
	assert.Equal(t, float64(1), testutil.ToFloat64(r.capacityBlocked))
}
