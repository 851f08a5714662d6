// Package telemetry holds the logging, metrics and tracing helpers shared by
// the JWKS strategies, the HTTP middleware and the daemon.
package telemetry
