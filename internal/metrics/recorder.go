package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultSkipped ResultLabel = "skipped"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for cycle and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveCycleDuration(d time.Duration)
	IncCycleOutcome(outcome string)
	SetSleepSeconds(seconds uint32)
	SetBootCount(n uint32)
	SetBatteryVolts(v float64, measured bool)
	ObserveDownloadBytes(n int64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveCycleDuration(time.Duration)         {}
func (NoopRecorder) IncCycleOutcome(string)                     {}
func (NoopRecorder) SetSleepSeconds(uint32)                     {}
func (NoopRecorder) SetBootCount(uint32)                        {}
func (NoopRecorder) SetBatteryVolts(float64, bool)              {}
func (NoopRecorder) ObserveDownloadBytes(int64)                 {}
