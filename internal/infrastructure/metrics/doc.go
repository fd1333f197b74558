// Package metrics exposes the prometheus collectors used by the model
// service and the portgraph-server /metrics endpoint. Collectors are bound
// to a registry passed in by the caller so tests and embedders can keep
// their own.
package metrics
