// Package session supervises harness adapter tasks over event streams.
//
// Each stream holds at most one running adapter. The adapter owns the
// stream's harness: it replays the durable history to reconstruct state,
// subscribes for live input events (PROMPT, ABORT), forwards them to the
// harness, and appends every harness output back to the stream. The stream
// is the source of truth; the adapter is a disposable projection of it.
package session
