// Package portgraph provides a minimal public façade for building, archiving
// and reloading models without importing internal packages. It re-exports
// the core model types for convenience and exposes a Runtime that keeps
// models in a store.
package portgraph
