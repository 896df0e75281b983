package eventlog

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestOffsetRoundTrip(t *testing.T) {
	o := OffsetFromSeq(1)
	if o != "0000000001" {
		t.Fatalf("want 0000000001, got %q", o)
	}
	seq, err := o.Seq()
	if err != nil || seq != 1 {
		t.Fatalf("round trip: %d %v", seq, err)
	}
}

func TestStartOffset(t *testing.T) {
	if !Start.IsStart() || !Offset("START").IsStart() {
		t.Fatal("start aliases not recognized")
	}
	seq, err := Offset("START").Seq()
	if err != nil || seq != 0 {
		t.Fatalf("START should parse to 0: %d %v", seq, err)
	}
	if OffsetFromSeq(0) != Start {
		t.Fatal("seq 0 should encode as Start")
	}
}

func TestMalformedOffsets(t *testing.T) {
	for _, bad := range []string{"abc", "-1", "00000000x1", "1.5", " 1", "99999999999"} {
		if _, err := Offset(bad).Seq(); !errors.Is(err, ErrInvalidOffset) {
			t.Fatalf("offset %q should be invalid, got %v", bad, err)
		}
	}
}

func TestOffsetFromSeqRejectsOverflow(t *testing.T) {
	if got := OffsetFromSeq(maxOffsetSeq); got != "9999999999" {
		t.Fatalf("max sequence should still encode: %q", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a sequence past the encodable range")
		}
	}()
	OffsetFromSeq(maxOffsetSeq + 1)
}

func TestOffsetOrderProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("lexical order matches numeric order", prop.ForAll(
		func(a, b uint64) bool {
			oa, ob := OffsetFromSeq(a), OffsetFromSeq(b)
			return (a < b) == (oa < ob)
		},
		gen.UInt64Range(1, maxOffsetSeq),
		gen.UInt64Range(1, maxOffsetSeq),
	))

	properties.Property("encode/parse round trips", prop.ForAll(
		func(a uint64) bool {
			seq, err := OffsetFromSeq(a).Seq()
			return err == nil && seq == a
		},
		gen.UInt64Range(1, maxOffsetSeq),
	))

	properties.TestingRun(t)
}
