package codec

import (
	"testing"
	"time"
)

func TestTimestampZeroIsCanonicalEpoch(t *testing.T) {
	got := DecodeTimestamp(0)
	if !got.Equal(epochA) {
		t.Errorf("DecodeTimestamp(0) = %v, want %v", got, epochA)
	}
}

func TestTimestampEpochARoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	encoded := EncodeTimestampEpochA(want)
	if encoded&0x80000000 == 0 {
		t.Fatalf("expected bit 31 set for a post-1972 epochA encoding, got 0x%08X", encoded)
	}
	got := DecodeTimestamp(encoded)
	if !got.Equal(want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestTimestampEpochBSignedRoundTrip(t *testing.T) {
	// Before 1970: a genuinely signed, pre-epoch value.
	want := time.Date(1969, 6, 1, 0, 0, 0, 0, time.UTC)
	encoded := EncodeTimestampEpochB(want)
	if encoded&0x80000000 == 0 {
		t.Fatalf("expected sign bit set for a pre-1970 value")
	}
	// Pre-1970 epochB-encoded values are indistinguishable from epochA
	// unsigned values by bit 31 alone, so the decoder's rule is: only a
	// LITERAL zero, or a value covering a date far enough past epochA, is
	// treated as epochA. Producers who need pre-1970 dates must rely on
	// consumers that decode via the same epochB assumption the producer
	// used; this test exercises the epochB decode path directly.
	got := epochB.Add(time.Duration(int32(encoded)) * time.Second)
	if !got.Equal(want) {
		t.Errorf("epochB decode = %v, want %v", got, want)
	}
}
