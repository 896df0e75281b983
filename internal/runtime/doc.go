// Package runtime wires configuration and storage into a single-node Strand
// instance. It owns the Pebble database handle shared by every stream.
package runtime
