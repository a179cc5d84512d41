package metrics

import "time"

// RecordKind labels counters by the repository that produced them.
type RecordKind string

const (
	KindWorld  RecordKind = "world"
	KindPortal RecordKind = "portal"
	KindStats  RecordKind = "stats"
)

// Recorder defines observability hooks for repository and lifecycle metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods must
// be safe for nil receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncRecordsLoaded(kind RecordKind, n int)
	IncRecordsPruned(kind RecordKind, n int)
	IncArchiveOutcome(success bool)
	ObserveArchiveDuration(d time.Duration)
	IncMigrationOutcome(kind RecordKind, success bool)
	SetWorldCount(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncRecordsLoaded(RecordKind, int)     {}
func (NoopRecorder) IncRecordsPruned(RecordKind, int)     {}
func (NoopRecorder) IncArchiveOutcome(bool)               {}
func (NoopRecorder) ObserveArchiveDuration(time.Duration) {}
func (NoopRecorder) IncMigrationOutcome(RecordKind, bool) {}
func (NoopRecorder) SetWorldCount(int)                    {}
