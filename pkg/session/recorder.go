// Package session implements the HotSync sync session:
// a stream wired through either the serial (SLP+PADP+CMP) or network
// framing stack into a DLP engine, plus a tap recorder used to build
// deterministic tests.
package session

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

// EventKind tags one recorded chunk as inbound or outbound.
type EventKind string

const (
	EventRead  EventKind = "READ"
	EventWrite EventKind = "WRITE"
)

// Event is one recorded transport chunk.
type Event struct {
	Kind EventKind
	Data []byte
}

// Recorder mirrors every read and write chunk crossing the transport
// stream into an ordered list, tagged READ or WRITE. It
// can be serialized to and reloaded from a structured text form and can
// replay against a newly constructed session to drive deterministic
// tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event

	// replay state; no constructor in this package sets it, so
	// RecordRead/RecordWrite always record (replay goes through
	// ReplayTransport)
	replaying bool
	cursor    int
}

// NewRecorder creates an empty recorder for live capture.
func NewRecorder() *Recorder { return &Recorder{} }

// RecordRead appends a READ event.
func (r *Recorder) RecordRead(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaying {
		return
	}
	r.events = append(r.events, Event{Kind: EventRead, Data: append([]byte(nil), data...)})
}

// RecordWrite appends a WRITE event.
func (r *Recorder) RecordWrite(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaying {
		return
	}
	r.events = append(r.events, Event{Kind: EventWrite, Data: append([]byte(nil), data...)})
}

// Events returns a copy of the recorded event list.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Serialize renders the recorder's events as a structured text form:
// one line per event, "READ <hex>" or "WRITE <hex>".
func (r *Recorder) Serialize() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, e := range r.events {
		fmt.Fprintf(&sb, "%s %s\n", e.Kind, hex.EncodeToString(e.Data))
	}
	return sb.String()
}

// Load parses a recorder's serialized text form.
func Load(text string) (*Recorder, error) {
	r := &Recorder{}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return nil, codec.ValidationError("session: malformed recorder line %q", line)
		}
		kind := EventKind(parts[0])
		if kind != EventRead && kind != EventWrite {
			return nil, codec.ValidationError("session: unknown event kind %q", parts[0])
		}
		data, err := hex.DecodeString(parts[1])
		if err != nil {
			return nil, codec.WrapError(codec.KindValidation, err, "session: decoding hex payload")
		}
		r.events = append(r.events, Event{Kind: kind, Data: data})
	}
	if err := sc.Err(); err != nil {
		return nil, codec.WrapError(codec.KindValidation, err, "session: scanning recorder text")
	}
	return r, nil
}

// ReplayTransport is an io.ReadWriter backed by a recorded event list: on
// each write it asserts byte-equality with the next recorded WRITE
// event; after each write, subsequent READ events are queued for Read
// until the next WRITE. A mismatch returns a ProtocolError — replaying
// a recorded session against a changed implementation should fail
// loudly, not silently diverge.
type ReplayTransport struct {
	rec    *Recorder
	cursor int
	pending *bytes.Buffer
}

// NewReplayTransport wires rec for deterministic replay.
func NewReplayTransport(rec *Recorder) *ReplayTransport {
	return &ReplayTransport{rec: rec, pending: &bytes.Buffer{}}
}

// Write asserts b matches the next recorded WRITE event byte-for-byte,
// then queues the READ events that follow it (up to the next WRITE or
// end of recording) for subsequent Read calls.
func (t *ReplayTransport) Write(b []byte) (int, error) {
	if t.cursor >= len(t.rec.events) {
		return 0, codec.ProtocolError("session: replay exhausted, unexpected write of %d bytes", len(b))
	}
	ev := t.rec.events[t.cursor]
	if ev.Kind != EventWrite {
		return 0, codec.ProtocolError("session: replay expected %s at index %d, got write", ev.Kind, t.cursor)
	}
	if !bytes.Equal(ev.Data, b) {
		return 0, codec.ProtocolError("session: replay write mismatch at index %d: got % x want % x", t.cursor, b, ev.Data)
	}
	t.cursor++

	for t.cursor < len(t.rec.events) && t.rec.events[t.cursor].Kind == EventRead {
		t.pending.Write(t.rec.events[t.cursor].Data)
		t.cursor++
	}
	return len(b), nil
}

// Read serves queued READ bytes; once exhausted with no further WRITE
// queued it reports io.EOF.
func (t *ReplayTransport) Read(b []byte) (int, error) {
	if t.pending.Len() == 0 {
		return 0, io.EOF
	}
	return t.pending.Read(b)
}
