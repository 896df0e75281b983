// Package pebblestore wraps a Pebble database with a durability policy and
// the small helper surface the event log needs: point reads/writes, atomic
// batches, ordered iterators, and range deletes.
//
// Durability is controlled by FsyncMode. FsyncModeAlways syncs the WAL on
// every committed batch, which is what the event log relies on for its
// "durable before acknowledged" contract. FsyncModeInterval enables Pebble's
// group commit for higher throughput at a small durability window.
package pebblestore
