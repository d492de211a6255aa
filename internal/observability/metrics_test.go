package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paper_search_new")

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.PapersReturned)
	assert.NotNil(t, m.CacheSize)
	assert.NotNil(t, m.SourceSearches)
	assert.NotNil(t, m.SourceDuration)
	assert.NotNil(t, m.PapersPerSource)
	assert.NotNil(t, m.SourceRateLimited)
	assert.NotNil(t, m.LaneDispatches)
	assert.NotNil(t, m.LaneRetries)
	assert.NotNil(t, m.EventsPublished)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSearch(true)
		m.RecordAggregation(3, 0.1)
		m.SetCacheSize(1)
		m.RecordSourceSuccess("arxiv", 1, 0.1)
		m.RecordSourceTimeout("pmc", 8)
		m.RecordSourceFailure("biorxiv", true, 0.2)
		m.RecordLaneDispatch()
		m.RecordLaneRetry()
		m.RecordEventPublished(false)
	})
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics("test_record_search")

	m.RecordSearch(true)
	m.RecordSearch(false)
	m.RecordSearch(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("miss")))
}

func TestRecordAggregation(t *testing.T) {
	m := NewMetrics("test_record_aggregation")

	m.RecordAggregation(5, 1.5)

	count, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	count, err = getHistogramSampleCount(m.PapersReturned)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSetCacheSize(t *testing.T) {
	m := NewMetrics("test_cache_size")

	m.SetCacheSize(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(m.CacheSize))
}

func TestRecordSourceOutcomes(t *testing.T) {
	m := NewMetrics("test_source_outcomes")

	m.RecordSourceSuccess("arxiv", 10, 0.5)
	m.RecordSourceFailure("biorxiv", true, 0.2)
	m.RecordSourceFailure("biorxiv", false, 0.2)
	m.RecordSourceTimeout("pmc", 8)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceSearches.WithLabelValues("arxiv", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SourceSearches.WithLabelValues("biorxiv", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceSearches.WithLabelValues("pmc", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("biorxiv")))
}

func TestRecordLane(t *testing.T) {
	m := NewMetrics("test_record_lane")

	m.RecordLaneDispatch()
	m.RecordLaneDispatch()
	m.RecordLaneRetry()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.LaneDispatches))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LaneRetries))
}

func TestRecordEventPublished(t *testing.T) {
	m := NewMetrics("test_record_events")

	m.RecordEventPublished(true)
	m.RecordEventPublished(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
