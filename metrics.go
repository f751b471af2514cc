package cline

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    screenHistogram prometheus.Histogram
//	    excludedCounter prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordScreen(features, excluded int, duration time.Duration, err error) {
//	    p.screenHistogram.Observe(duration.Seconds())
//	    p.excludedCounter.Add(float64(excluded))
//	}
type MetricsCollector interface {
	// RecordAggregate is called after each single-feature aggregation.
	// duration is the total time taken, err is nil if successful.
	RecordAggregate(duration time.Duration, err error)

	// RecordScreen is called after each screen over the full matrix.
	// features is the number of features screened, excluded the number
	// filtered out, duration the total time taken.
	RecordScreen(features, excluded int, duration time.Duration, err error)

	// RecordSave is called after each artifact save.
	RecordSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAggregate(time.Duration, error)        {}
func (NoopMetricsCollector) RecordScreen(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AggregateCount      atomic.Int64
	AggregateErrors     atomic.Int64
	AggregateTotalNanos atomic.Int64
	ScreenCount         atomic.Int64
	ScreenErrors        atomic.Int64
	ScreenFeatures      atomic.Int64
	ScreenExcluded      atomic.Int64
	ScreenTotalNanos    atomic.Int64
	SaveCount           atomic.Int64
	SaveErrors          atomic.Int64
}

// RecordAggregate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAggregate(duration time.Duration, err error) {
	b.AggregateCount.Add(1)
	b.AggregateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AggregateErrors.Add(1)
	}
}

// RecordScreen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScreen(features, excluded int, duration time.Duration, err error) {
	b.ScreenCount.Add(1)
	b.ScreenFeatures.Add(int64(features))
	b.ScreenExcluded.Add(int64(excluded))
	b.ScreenTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ScreenErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AggregateCount:    b.AggregateCount.Load(),
		AggregateErrors:   b.AggregateErrors.Load(),
		AggregateAvgNanos: b.getAvgAggregateNanos(),
		ScreenCount:       b.ScreenCount.Load(),
		ScreenErrors:      b.ScreenErrors.Load(),
		ScreenFeatures:    b.ScreenFeatures.Load(),
		ScreenExcluded:    b.ScreenExcluded.Load(),
		ScreenAvgNanos:    b.getAvgScreenNanos(),
		SaveCount:         b.SaveCount.Load(),
		SaveErrors:        b.SaveErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAggregateNanos() int64 {
	count := b.AggregateCount.Load()
	if count == 0 {
		return 0
	}
	return b.AggregateTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgScreenNanos() int64 {
	count := b.ScreenCount.Load()
	if count == 0 {
		return 0
	}
	return b.ScreenTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AggregateCount    int64
	AggregateErrors   int64
	AggregateAvgNanos int64
	ScreenCount       int64
	ScreenErrors      int64
	ScreenFeatures    int64
	ScreenExcluded    int64
	ScreenAvgNanos    int64
	SaveCount         int64
	SaveErrors        int64
}
