package netframe

import (
	"bytes"
	"testing"
)

func TestWriteReadDatagramRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	xid, err := w.WriteDatagram([]byte("hello"))
	if err != nil {
		t.Fatalf("WriteDatagram error: %v", err)
	}
	if xid != 1 {
		t.Fatalf("first xid = %d, want 1", xid)
	}

	r := NewReader(&buf)
	d, err := r.ReadDatagram()
	if err != nil {
		t.Fatalf("ReadDatagram error: %v", err)
	}
	if d.Xid != xid {
		t.Errorf("xid = %d, want %d", d.Xid, xid)
	}
	if string(d.Payload) != "hello" {
		t.Errorf("payload = %q, want %q", d.Payload, "hello")
	}
}

func TestWriterXidWrapsSkippingZero(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.nextXid = 255
	xid, err := w.WriteDatagram(nil)
	if err != nil {
		t.Fatalf("WriteDatagram error: %v", err)
	}
	if xid != 1 {
		t.Errorf("xid after wraparound = %d, want 1 (skipping 0)", xid)
	}
}

func TestReadDatagramRejectsBadType(t *testing.T) {
	bad := []byte{2, 1, 0, 0, 0, 0}
	r := NewReader(bytes.NewReader(bad))
	if _, err := r.ReadDatagram(); err == nil {
		t.Fatal("expected framing error for non-1 type byte")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	hostSide, deviceSide := newDuplexPipe()

	errCh := make(chan error, 1)
	go func() { errCh <- Handshake(hostSide) }()

	if err := ClientHandshake(deviceSide); err != nil {
		t.Fatalf("ClientHandshake error: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Handshake error: %v", err)
	}
}
