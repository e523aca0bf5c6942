// Package metrics exposes gathertrim's Prometheus metrics.
//
// One-shot commands write the registry to a node-exporter textfile with
// WriteTextfile; schedule mode serves it over HTTP with Handler.
package metrics
