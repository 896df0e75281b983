package streams

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/strandio/strand/internal/eventlog"
)

// Event is one durable record of a stream. Data is opaque to the engine;
// ordering is defined by Offset, CreatedAt is informational.
type Event struct {
	Stream    string          `json:"stream"`
	Offset    eventlog.Offset `json:"offset"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ErrInvalidStreamName reports an empty name or one containing '/'.
var ErrInvalidStreamName = errors.New("streams: invalid stream name")

// ErrStreamDeleted terminates subscriptions whose stream was removed.
var ErrStreamDeleted = errors.New("streams: stream deleted")

// ReadOptions controls GetFrom.
type ReadOptions struct {
	// Limit caps the number of returned events. 0 means no cap.
	Limit int
	// Filter is an optional CEL expression; events evaluating false are
	// skipped (and still advance the read position).
	Filter string
}

// SubscribeOptions controls Subscribe.
type SubscribeOptions struct {
	// Filter is an optional CEL expression applied before delivery.
	Filter string
	// Buffer overrides the delivery channel capacity. 0 uses the service
	// default.
	Buffer int
}

func validStreamName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return false
		}
	}
	return true
}
