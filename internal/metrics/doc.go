// Package metrics records build metrics behind a small Recorder interface.
//
// Components hold a Recorder and default to NoopRecorder, so metrics cost
// nothing unless enabled:
//
//	p := pipeline.New(cfg, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// A PrometheusRecorder registers its collectors on the given registry. For
// one-shot builds the registry is written to a node-exporter textfile with
// WriteTextfile; long-running commands serve it with HTTPHandler.
package metrics
