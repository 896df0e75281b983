// Package httpserver exposes the engine over HTTP: JSON endpoints for
// append/read/list/delete and session control, and Server-Sent Events for
// live subscriptions.
package httpserver
