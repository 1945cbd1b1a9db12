// Package server provides the admin HTTP server of demandflow programs,
// backed by Gin.
//
// The server is a component: it binds in Start and shuts down gracefully in
// Stop. It exposes:
//
//   - /health: aggregated component health
//   - /ready: readiness derived from the same checker
//   - /metrics: Prometheus exposition of a prometheus.Gatherer
//
// Requests pass through panic recovery, request-ID propagation and request
// logging.
package server
