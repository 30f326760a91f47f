// Package metrics exposes Prometheus metrics for admission decisions,
// token accounting, tier selection and the counter store.
package metrics
