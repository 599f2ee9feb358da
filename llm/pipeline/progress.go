// Package pipeline wires the fixed ingestion and quiz stages into eino
// runnables.
package pipeline

import (
	"context"

	"revise/pubsub"
)

// IngestionSteps is the denominator of ingestion progress.
const IngestionSteps = 7

// Progress is one step report.
type Progress struct {
	Step  int
	Total int
	Label string
}

// Fraction is Step/Total clamped to [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(float64(p.Step)/float64(p.Total), 0), 1)
}

// ProgressReporter receives step reports. Implementations must not block.
type ProgressReporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to ProgressReporter.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// BrokerReporter publishes every report as a ProgressEvent.
type BrokerReporter struct {
	Broker pubsub.Publisher[Progress]
}

func (r BrokerReporter) Report(p Progress) {
	r.Broker.Publish(pubsub.ProgressEvent, p)
}

type reporterKey struct{}

// WithReporter attaches r to ctx for the stages of one run.
func WithReporter(ctx context.Context, r ProgressReporter) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, reporterKey{}, r)
}

func reportProgress(ctx context.Context, step int, label string) {
	if r, ok := ctx.Value(reporterKey{}).(ProgressReporter); ok {
		r.Report(Progress{Step: step, Total: IngestionSteps, Label: label})
	}
}
