// Package httpserver runs the service's HTTP handler with graceful shutdown and
// provides liveness/readiness handlers.
package httpserver
