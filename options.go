package cline

import (
	"log/slog"

	"github.com/strataseq/cline/codec"
	"github.com/strataseq/cline/resource"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	workers          int
}

// Option configures constructor behavior shared by the builders.
//
// Options exist to avoid exploding the builder surface with one method
// per ambient concern; the builders forward to them.
type Option func(*options)

// WithCodec configures the codec used when persisting reports and
// matrix snapshots.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &cline.BasicMetricsCollector{}
//	c, _ := cline.Latitude[string](mat, lats).Metrics(metrics).Build()
//	// ... run screens ...
//	stats := metrics.GetStats()
//	fmt.Printf("Screens: %d, Avg latency: %dns\n", stats.ScreenCount, stats.ScreenAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := cline.NewJSONLogger(slog.LevelInfo)
//	c, _ := cline.Latitude[string](mat, lats).Logger(logger).Build()
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResources configures a resource controller bounding concurrent
// screens, scratch memory and upload bandwidth. Pass nil for no limits.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithWorkers configures the number of parallel screening workers.
// Values <= 0 default to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            nil,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
