package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "inkframe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	cycleDuration prom.Histogram
	cycleOutcome  *prom.CounterVec
	sleepSeconds  prom.Gauge
	bootCount     prom.Gauge
	batteryVolts  prom.Gauge
	batteryValid  prom.Gauge
	downloadBytes prom.Histogram
}

// NewPrometheusRecorder constructs the metrics and registers them on reg. A
// nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual cycle stages",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		cycleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time from wake to sleep decision",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		cycleOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_outcomes_total",
			Help:      "Cycles by final outcome",
		}, []string{"outcome"}),
		sleepSeconds: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "sleep_seconds",
			Help:      "Sleep duration chosen by the last cycle",
		}),
		bootCount: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "boot_count",
			Help:      "Wakes since the last cold boot",
		}),
		batteryVolts: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_volts",
			Help:      "Last plausible battery reading",
		}),
		batteryValid: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_measured",
			Help:      "1 when the last battery reading was plausible",
		}),
		downloadBytes: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "image_download_bytes",
			Help:      "Size of downloaded frames",
			Buckets:   prom.ExponentialBuckets(64*1024, 2, 6),
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.cycleDuration, pr.cycleOutcome,
		pr.sleepSeconds, pr.bootCount, pr.batteryVolts, pr.batteryValid, pr.downloadBytes)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleOutcome(outcome string) {
	if p == nil {
		return
	}
	p.cycleOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetSleepSeconds(seconds uint32) {
	if p == nil {
		return
	}
	p.sleepSeconds.Set(float64(seconds))
}

func (p *PrometheusRecorder) SetBootCount(n uint32) {
	if p == nil {
		return
	}
	p.bootCount.Set(float64(n))
}

// SetBatteryVolts keeps the previous voltage when the reading was not measured.
func (p *PrometheusRecorder) SetBatteryVolts(v float64, measured bool) {
	if p == nil {
		return
	}
	if !measured {
		p.batteryValid.Set(0)
		return
	}
	p.batteryValid.Set(1)
	p.batteryVolts.Set(v)
}

func (p *PrometheusRecorder) ObserveDownloadBytes(n int64) {
	if p == nil {
		return
	}
	p.downloadBytes.Observe(float64(n))
}
