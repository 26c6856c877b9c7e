package variant

import "time"

// Metrics observes cache behavior. Optional: a nil Metrics disables
// collection.
type Metrics interface {
	// RecordHit records a variant served from the cache
	RecordHit()

	// RecordMiss records a variant that had to be rendered
	RecordMiss()

	// ObserveRender records one render with its duration and outcome
	ObserveRender(duration time.Duration, err error)

	// RecordPurged records variant blobs removed for a deleted file
	RecordPurged(count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit()                                      {}
func (noopMetrics) RecordMiss()                                     {}
func (noopMetrics) ObserveRender(duration time.Duration, err error) {}
func (noopMetrics) RecordPurged(count int)                          {}
