package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	recordsLoaded    *prom.CounterVec
	recordsPruned    *prom.CounterVec
	archiveOutcomes  *prom.CounterVec
	archiveDuration  prom.Histogram
	migrationResults *prom.CounterVec
	worldCount       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.recordsLoaded = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "worldhost",
			Name:      "records_loaded_total",
			Help:      "Records loaded from disk by repository kind",
		}, []string{"kind"})
		pr.recordsPruned = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "worldhost",
			Name:      "records_pruned_total",
			Help:      "Dangling cross-entity references pruned on load",
		}, []string{"kind"})
		pr.archiveOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "worldhost",
			Name:      "archive_outcomes_total",
			Help:      "Archive queue item outcomes",
		}, []string{"result"})
		pr.archiveDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "worldhost",
			Name:      "archive_duration_seconds",
			Help:      "Duration of individual world storage archive operations",
			Buckets:   prom.DefBuckets,
		})
		pr.migrationResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "worldhost",
			Name:      "migration_results_total",
			Help:      "Legacy migration results by record kind",
		}, []string{"kind", "result"})
		pr.worldCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "worldhost",
			Name:      "worlds",
			Help:      "Number of world records currently loaded",
		})
		reg.MustRegister(pr.recordsLoaded, pr.recordsPruned, pr.archiveOutcomes, pr.archiveDuration, pr.migrationResults, pr.worldCount)
	})
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) IncRecordsLoaded(kind RecordKind, n int) {
	if p == nil || p.recordsLoaded == nil {
		return
	}
	p.recordsLoaded.WithLabelValues(string(kind)).Add(float64(n))
}

func (p *PrometheusRecorder) IncRecordsPruned(kind RecordKind, n int) {
	if p == nil || p.recordsPruned == nil {
		return
	}
	p.recordsPruned.WithLabelValues(string(kind)).Add(float64(n))
}

func (p *PrometheusRecorder) IncArchiveOutcome(success bool) {
	if p == nil || p.archiveOutcomes == nil {
		return
	}
	p.archiveOutcomes.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) ObserveArchiveDuration(d time.Duration) {
	if p == nil || p.archiveDuration == nil {
		return
	}
	p.archiveDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncMigrationOutcome(kind RecordKind, success bool) {
	if p == nil || p.migrationResults == nil {
		return
	}
	p.migrationResults.WithLabelValues(string(kind), resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) SetWorldCount(n int) {
	if p == nil || p.worldCount == nil {
		return
	}
	p.worldCount.Set(float64(n))
}
