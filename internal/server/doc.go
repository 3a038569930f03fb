// Package server is the optional local status server that runs beside the
// terminal UI. It is read-only: it reports what the monitor currently shows
// and exposes Prometheus metrics.
//
// # Endpoints
//
//   - GET /healthz - liveness plus stream connectivity and last poll time
//   - GET /api/snapshot - the full monitor snapshot as JSON
//   - GET /api/tasks/:id - one task as currently known to the monitor
//   - GET /metrics - Prometheus exposition
//
// Requests are rate limited per client IP with a sliding window.
package server
