// Package eventlog implements Strand's per-stream append-only log.
//
// # Overview
//
// One Log instance owns one named stream persisted in Pebble. Keys are
// lexicographically ordered for efficient range scans:
//   - s/{stream}/m           (stream metadata: last assigned sequence)
//   - s/{stream}/e/{seq_be8} (entries)
//
// Records are stored as: ts_ms(8B BE) | payload | crc32c(ts|payload).
//
// Sequences start at 1 and increase by exactly one per append; the public
// Offset token is the zero-padded decimal rendering of a sequence, so string
// comparison of offsets matches numeric order. Offset's zero value (Start)
// addresses the position before the first entry.
//
// Appends on a Log are serialized by its mutex; callers must route all
// appends for a stream through one Log instance (the streams registry caches
// one per name). Tail readers block on NotifyAppend; Deleted fires when the
// whole log is removed so subscribers can terminate instead of waiting
// forever.
package eventlog
