package session

import (
	"bytes"
	"io"
	"testing"
)

// readWriter pairs an independent reader and writer into one io.ReadWriter.
type readWriter struct {
	io.Reader
	io.Writer
}

func TestRecorderSerializeLoadRoundTrip(t *testing.T) {
	rec := NewRecorder()
	rec.RecordWrite([]byte{0xDE, 0xAD})
	rec.RecordRead([]byte{0xBE, 0xEF})

	text := rec.Serialize()
	loaded, err := Load(text)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	events := loaded.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != EventWrite || !bytes.Equal(events[0].Data, []byte{0xDE, 0xAD}) {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Kind != EventRead || !bytes.Equal(events[1].Data, []byte{0xBE, 0xEF}) {
		t.Errorf("event 1 = %+v", events[1])
	}
}

func TestReplayTransportAssertsWriteMatch(t *testing.T) {
	rec := &Recorder{events: []Event{
		{Kind: EventWrite, Data: []byte("ping")},
		{Kind: EventRead, Data: []byte("pong")},
	}}
	tr := NewReplayTransport(rec)

	if _, err := tr.Write([]byte("ping")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	buf := make([]byte, 4)
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(buf[:n]) != "pong" {
		t.Errorf("read = %q, want %q", buf[:n], "pong")
	}
}

func TestReplayTransportRejectsMismatchedWrite(t *testing.T) {
	rec := &Recorder{events: []Event{{Kind: EventWrite, Data: []byte("ping")}}}
	tr := NewReplayTransport(rec)

	if _, err := tr.Write([]byte("pong")); err == nil {
		t.Fatal("expected protocol error for mismatched write")
	}
}

func TestTappedStreamMirrorsChunks(t *testing.T) {
	backing := bytes.NewBuffer([]byte("inbound-data"))
	rec := NewRecorder()
	var written bytes.Buffer
	ts := NewTappedStream(readWriter{Reader: backing, Writer: &written}, rec)

	buf := make([]byte, 8)
	if _, err := ts.Read(buf); err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if _, err := ts.Write([]byte("outbound")); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	events := rec.Events()
	if len(events) != 2 || events[0].Kind != EventRead || events[1].Kind != EventWrite {
		t.Fatalf("events = %+v", events)
	}
}
