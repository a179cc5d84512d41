package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.IncRecordsLoaded(KindWorld, 3)
	rec.IncRecordsPruned(KindStats, 2)
	rec.IncArchiveOutcome(true)
	rec.IncArchiveOutcome(false)
	rec.ObserveArchiveDuration(50 * time.Millisecond)
	rec.IncMigrationOutcome(KindPortal, true)
	rec.SetWorldCount(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.recordsLoaded.WithLabelValues("world")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.recordsPruned.WithLabelValues("stats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.archiveOutcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.archiveOutcomes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.migrationResults.WithLabelValues("portal", "success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(rec.worldCount))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	rec.IncRecordsLoaded(KindWorld, 1)
	rec.IncArchiveOutcome(true)
	rec.SetWorldCount(1)

	NoopRecorder{}.IncRecordsPruned(KindPortal, 1)
}
