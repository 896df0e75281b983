package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - sm/{stream}            last assigned sequence (metadata)
// - se/{stream}/{seq_be8}  log entries
//
// Metadata and entries live under disjoint top-level prefixes so a scan of
// one space can never surface keys of the other. Stream names contain no
// '/', so the name is recoverable from either key form without parsing the
// suffix.

var (
	metaPrefix  = []byte("sm/")
	entryPrefix = []byte("se/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyStreamMeta builds the stream metadata key holding the last sequence.
func KeyStreamMeta(stream string) []byte {
	k := make([]byte, 0, len(stream)+4)
	k = append(k, metaPrefix...)
	k = append(k, stream...)
	return k
}

// KeyLogEntry builds the entry key with a big-endian sequence so iteration
// order equals append order.
func KeyLogEntry(stream string, seq uint64) []byte {
	k := make([]byte, 0, len(stream)+12)
	k = append(k, entryPrefix...)
	k = append(k, stream...)
	k = append(k, '/')
	k = appendBE8(k, seq)
	return k
}

// KeyEntriesPrefix is the range prefix covering every entry key of one
// stream, usable for whole-log deletes.
func KeyEntriesPrefix(stream string) []byte {
	k := make([]byte, 0, len(stream)+4)
	k = append(k, entryPrefix...)
	k = append(k, stream...)
	k = append(k, '/')
	return k
}

// KeyAllMetaPrefix is the range prefix covering every stream's metadata key.
func KeyAllMetaPrefix() []byte { return metaPrefix }

// StreamFromMetaKey extracts the stream name from a metadata key.
func StreamFromMetaKey(key []byte) string {
	if len(key) <= len(metaPrefix) {
		return ""
	}
	return string(key[len(metaPrefix):])
}

// SeqFromEntryKey extracts the sequence from an entry key.
func SeqFromEntryKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
