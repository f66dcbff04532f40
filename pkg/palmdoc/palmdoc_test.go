package palmdoc

import (
	"bytes"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, input []byte) {
	t.Helper()
	compressed := Compress(input)
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(out), len(input))
	}
}

func TestRoundTripHelloWorld(t *testing.T) {
	roundTrip(t, []byte("Hello, world!"))
}

func TestRoundTripZeroRun(t *testing.T) {
	roundTrip(t, bytes.Repeat([]byte{0x00}, 10000))
}

func TestRoundTripRandomBuffer(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	buf := make([]byte, 100000)
	r.Read(buf)
	roundTrip(t, buf)
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, []byte{})
}

func TestRoundTripRepeatingPattern(t *testing.T) {
	roundTrip(t, bytes.Repeat([]byte("ab"), 2000))
}

func TestRoundTripHighBitBytes(t *testing.T) {
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}
	roundTrip(t, buf)
}

func TestDecompressOverlappingBackReference(t *testing.T) {
	// distance(1) < length(4): each copied byte must be sourced
	// byte-by-byte from the growing output, reproducing "aaaaa".
	encoded := []byte{'a', 0x80, (1 << 3) | (4 - 3)}
	out, err := Decompress(encoded)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	want := []byte("aaaaa")
	if !bytes.Equal(out, want) {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestDecompressInvalidDistance(t *testing.T) {
	// A back-reference at the very start of the stream has nothing to
	// refer to.
	encoded := []byte{0x80, (5 << 3) | 0}
	if _, err := Decompress(encoded); err == nil {
		t.Fatal("expected error for out-of-range back-reference")
	}
}

func TestDecompressSpaceXOR(t *testing.T) {
	// 0xC1 = space + (0xC1 ^ 0x80 = 0x41 = 'A')
	out, err := Decompress([]byte{0xC1})
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if string(out) != " A" {
		t.Fatalf("got %q, want %q", out, " A")
	}
}
