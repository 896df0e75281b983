// Package client contains Cobra CLI commands talking to a strand server
// over its HTTP API.
package client
