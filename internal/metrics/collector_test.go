package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/zonemap/internal/pipeline"
)

func TestObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveBatch("MA", pipeline.Stats{Total: 6, Features: 3, Filtered: 1, OutOfDomain: 2, OutsideEnvelope: 1}, 20*time.Millisecond)
	c.ObserveBatch("MA", pipeline.Stats{Total: 1, Invalid: 1}, time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Entities.WithLabelValues("MA", OutcomeFeature)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Entities.WithLabelValues("MA", OutcomeFiltered)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Entities.WithLabelValues("MA", OutcomeOutOfDomain)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Entities.WithLabelValues("MA", OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.OutsideEnvelope.WithLabelValues("MA")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Batches.WithLabelValues("MA")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.BatchDurations))
}

func TestObserveSuperseded(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveSuperseded("TN")
	c.ObserveSuperseded("TN")

	expected := `
# HELP zonemap_batches_superseded_total Batches discarded because a newer batch replaced them.
# TYPE zonemap_batches_superseded_total counter
zonemap_batches_superseded_total{country="TN"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "zonemap_batches_superseded_total"))
}

func TestNewCollectorTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveSuperseded("DZ")
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Superseded.WithLabelValues("DZ")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveBatch("MA", pipeline.Stats{Features: 1}, time.Second)
	c.ObserveSuperseded("MA")
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveBatch("DZ", pipeline.Stats{Total: 1, Features: 1}, time.Millisecond)

	path := filepath.Join(t.TempDir(), "zonemap.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `zonemap_entities_total{country="DZ",outcome="feature"} 1`)
	assert.Contains(t, string(data), "zonemap_batch_duration_seconds_count")
}

func TestWriteTextfileBadPath(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	err = c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "zonemap.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write metrics")
}
