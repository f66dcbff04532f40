package session

import "io"

// TappedStream wraps an underlying io.ReadWriter, mirroring every chunk
// that crosses it into an optional Recorder. When rec is
// nil the tap is a no-op passthrough.
type TappedStream struct {
	io.ReadWriter
	rec *Recorder
}

// NewTappedStream wires rw with tap recording via rec (nil disables it).
func NewTappedStream(rw io.ReadWriter, rec *Recorder) *TappedStream {
	return &TappedStream{ReadWriter: rw, rec: rec}
}

func (t *TappedStream) Read(b []byte) (int, error) {
	n, err := t.ReadWriter.Read(b)
	if n > 0 && t.rec != nil {
		t.rec.RecordRead(b[:n])
	}
	return n, err
}

func (t *TappedStream) Write(b []byte) (int, error) {
	n, err := t.ReadWriter.Write(b)
	if n > 0 && t.rec != nil {
		t.rec.RecordWrite(b[:n])
	}
	return n, err
}
