// Package serverrun wires the runtime, services and HTTP server together
// and runs them until shutdown.
package serverrun
