// Package prebuilt provides opinionated, ready-made model templates
// ("prebuilts") for common dataflow shapes such as operation chains,
// reductions over several inputs and random models for load tests. Each
// prebuilt exposes a simple configuration and returns a resolved
// *graph.Model that can be saved, pruned or exported like any other.
package prebuilt
