// Package metrics records compilation metrics. Components hold a Recorder and
// default to NoopRecorder, so metrics stay optional everywhere.
package metrics

import "time"

// Outcome labels a finished compilation.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeCached   Outcome = "cached"
	OutcomeInvalid  Outcome = "invalid_frontmatter"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines the observability hooks of the compilation pipeline.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveCompileDuration(d time.Duration)
	IncCompileOutcome(outcome Outcome)
	IncCacheResult(cache string, hit bool)
	SetCacheBytes(cache string, bytes int)
	SetQueueDepth(waiting, running int)
	IncEmbedResult(provider string, ok bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)       {}
func (NoopRecorder) IncCompileOutcome(Outcome)                  {}
func (NoopRecorder) IncCacheResult(string, bool)                {}
func (NoopRecorder) SetCacheBytes(string, int)                  {}
func (NoopRecorder) SetQueueDepth(int, int)                     {}
func (NoopRecorder) IncEmbedResult(string, bool)                {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
