package domain

import "time"

// FetchResult labels the outcome of one source fetch.
type FetchResult string

const (
	FetchResultSuccess FetchResult = "success"
	FetchResultError   FetchResult = "error"
	// FetchResultDiscarded marks a completion for a source removed while in flight.
	FetchResultDiscarded FetchResult = "discarded"
)

// Metrics receives catalog resolution observations.
type Metrics interface {
	ObserveSourceFetch(kind SourceKind, result FetchResult, duration time.Duration)
	SetPendingSources(kind SourceKind, count int)
	SetCatalogEntries(count int)
	SetCatalogReady(ready bool)
	ObserveInvalidEntries(count int)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveSourceFetch(SourceKind, FetchResult, time.Duration) {}
func (NoopMetrics) SetPendingSources(SourceKind, int)                         {}
func (NoopMetrics) SetCatalogEntries(int)                                     {}
func (NoopMetrics) SetCatalogReady(bool)                                      {}
func (NoopMetrics) ObserveInvalidEntries(int)                                 {}

var _ Metrics = NoopMetrics{}
