// Package streams is the stream registry and manager. It exposes the engine
// surface consumed by every collaborator: Append, GetFrom, List, Delete, and
// Subscribe.
//
// The manager caches one eventlog.Log per stream name so all producers of a
// stream share one append mutex (single-writer discipline); different streams
// never contend. Subscriptions are broadcast: each subscriber gets the full
// ordered sequence, first as catch-up from its requested offset, then live as
// new events are appended, with no gaps and no duplicates.
//
// Reads and subscriptions accept an optional CEL filter expression evaluated
// per event; see celfilter.go for the variables in scope.
package streams
