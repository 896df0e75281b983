package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	pebblestore "github.com/strandio/strand/internal/storage/pebble"
)

// ErrLogDeleted is returned by operations on a Log whose stream has been
// removed. Callers holding a stale Log must reopen through the registry.
var ErrLogDeleted = errors.New("eventlog: log deleted")

// Log provides append-only operations for one named stream.
type Log struct {
	db     *pebblestore.DB
	stream string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
	gone     bool
	goneCh   chan struct{}
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, stream string) (*Log, error) {
	l := &Log{db: db, stream: stream, notifyCh: make(chan struct{}), goneCh: make(chan struct{})}
	meta, err := db.Get(KeyStreamMeta(stream))
	if err != nil && !pebblestore.IsNotFound(err) {
		return nil, err
	}
	if len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Stream returns the stream name this log belongs to.
func (l *Log) Stream() string { return l.stream }

// Append durably writes one payload and returns its assigned sequence.
// Appends on a Log are serialized; the sequence increases by exactly one.
func (l *Log) Append(ctx context.Context, tsMs int64, payload []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gone {
		return 0, ErrLogDeleted
	}

	seq := l.lastSeq + 1
	b := l.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyLogEntry(l.stream, seq), EncodeRecord(tsMs, payload), nil); err != nil {
		return 0, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyStreamMeta(l.stream), meta[:], nil); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	l.lastSeq = seq

	// wake tail readers
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seq, nil
}

// LastSeq returns the last assigned sequence (0 for an empty log).
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// NotifyAppend returns a channel closed by the next append. Grab the channel
// before reading so an append between the read and the wait is never missed.
func (l *Log) NotifyAppend() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}

// Deleted returns a channel closed when the log is removed.
func (l *Log) Deleted() <-chan struct{} { return l.goneCh }

// DeleteAll marks the log deleted, wakes all waiters, and removes every key
// of the stream. Appends and reads through this instance fail afterwards.
func (l *Log) DeleteAll(ctx context.Context) error {
	l.mu.Lock()
	if l.gone {
		l.mu.Unlock()
		return nil
	}
	l.gone = true
	close(l.goneCh)
	l.mu.Unlock()

	prefix := KeyEntriesPrefix(l.stream)
	end := append(append([]byte(nil), prefix...), 0xFF)
	b := l.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(prefix, end, nil); err != nil {
		return err
	}
	if err := b.Delete(KeyStreamMeta(l.stream), nil); err != nil {
		return err
	}
	return l.db.CommitBatch(ctx, b)
}
