package eventlog

import (
	"github.com/cockroachdb/pebble"
)

// ReadOptions controls a range read.
type ReadOptions struct {
	// FromExclusive is the sequence after which to read. 0 reads from the
	// first entry.
	FromExclusive uint64
	// Limit caps the number of returned items. 0 means no cap.
	Limit int
}

// Item is one decoded log entry.
type Item struct {
	Seq     uint64
	TsMs    int64
	Payload []byte
}

// Read returns up to Limit items with sequence > FromExclusive, in sequence
// order. A position past the end yields an empty result, not an error.
func (l *Log) Read(opts ReadOptions) ([]Item, error) {
	l.mu.Lock()
	gone := l.gone
	l.mu.Unlock()
	if gone {
		return nil, ErrLogDeleted
	}

	low := KeyLogEntry(l.stream, opts.FromExclusive+1)
	hi := KeyLogEntry(l.stream, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	items := make([]Item, 0, 16)
	for ok := iter.First(); ok; ok = iter.Next() {
		ts, payload, ok2 := DecodeRecord(iter.Value())
		if !ok2 {
			continue
		}
		items = append(items, Item{Seq: SeqFromEntryKey(iter.Key()), TsMs: ts, Payload: payload})
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
	}
	return items, nil
}
