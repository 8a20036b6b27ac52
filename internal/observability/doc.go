// Package observability provides structured logging and Prometheus metrics
// for the notes API.
//
// This package implements:
//   - zap logger construction from configuration
//   - Counters and histograms for HTTP traffic, authentication and quota
//     decisions, registered on a private registry
package observability
