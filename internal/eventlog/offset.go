package eventlog

import (
	"errors"
	"fmt"
	"strconv"
)

// Offset is an opaque position token within one stream. Offsets assigned by
// appends are strictly increasing and compare lexically in assignment order.
type Offset string

// Start addresses the position before the first event of a stream.
const Start Offset = ""

// ErrInvalidOffset reports a syntactically malformed offset token.
var ErrInvalidOffset = errors.New("eventlog: invalid offset")

// offsetDigits is the fixed width of encoded offsets. Ten decimal digits
// cover the full range before string and numeric order diverge.
const offsetDigits = 10

// maxOffsetSeq is the largest sequence encodable in offsetDigits digits.
const maxOffsetSeq = 9999999999

// IsStart reports whether o addresses the start of the stream. "START" is
// accepted as a spelled-out alias for boundary layers.
func (o Offset) IsStart() bool { return o == Start || o == "START" }

// String returns the offset token.
func (o Offset) String() string { return string(o) }

// Seq parses the offset into its sequence number. Start parses to 0.
func (o Offset) Seq() (uint64, error) {
	if o.IsStart() {
		return 0, nil
	}
	if len(o) == 0 || len(o) > offsetDigits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, string(o))
	}
	for i := 0; i < len(o); i++ {
		if o[i] < '0' || o[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, string(o))
		}
	}
	n, err := strconv.ParseUint(string(o), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, string(o))
	}
	return n, nil
}

// OffsetFromSeq encodes a sequence number as an offset token. Sequences past
// maxOffsetSeq have no valid token: an 11-digit string would break lexical
// ordering and be rejected by Seq, so the encoder panics rather than emit
// one. Appends assign sequences one at a time starting from 1, keeping the
// bound out of reach in practice.
func OffsetFromSeq(seq uint64) Offset {
	if seq == 0 {
		return Start
	}
	if seq > maxOffsetSeq {
		panic(fmt.Sprintf("eventlog: sequence %d exceeds the %d-digit offset range", seq, offsetDigits))
	}
	return Offset(fmt.Sprintf("%0*d", offsetDigits, seq))
}
