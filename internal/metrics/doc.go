// Package metrics records duty-cycle observations.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default when metrics are disabled; PrometheusRecorder collects into a
// registry that is either written to a node-exporter textfile before the
// device sleeps or served by the config portal.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	...
//	err := metrics.NewTextfile(path, reg).Write()
package metrics
