package dlp

import (
	"time"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

// Timestamp is the DLP-layer time value, distinct from the database
// container's 32-bit timestamp convention: 8 bytes of
// year(16 BE)/month/day/hour/minute/second/reserved. An all-zero value
// is the canonical epoch.
type Timestamp struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// Encode serializes t to its 8-byte wire form.
func (t Timestamp) Encode() []byte {
	w := codec.NewWriterSize(8)
	w.U16(t.Year)
	w.U8(t.Month)
	w.U8(t.Day)
	w.U8(t.Hour)
	w.U8(t.Minute)
	w.U8(t.Second)
	w.U8(0) // reserved
	return w.Bytes()
}

// DecodeTimestamp parses an 8-byte DLP timestamp.
func DecodeTimestamp(data []byte) (Timestamp, error) {
	if len(data) < 8 {
		return Timestamp{}, codec.FramingError("dlp: timestamp too short: %d bytes, want 8", len(data))
	}
	r := codec.NewReader(data)
	t := Timestamp{}
	t.Year = r.U16()
	t.Month = r.U8()
	t.Day = r.U8()
	t.Hour = r.U8()
	t.Minute = r.U8()
	t.Second = r.U8()
	r.Skip(1)
	return t, r.Err()
}

// IsZero reports whether t is the canonical all-zero epoch value.
func (t Timestamp) IsZero() bool {
	return t.Year == 0 && t.Month == 0 && t.Day == 0 && t.Hour == 0 && t.Minute == 0 && t.Second == 0
}

// FromTime converts a time.Time into the DLP timestamp representation.
func FromTime(tm time.Time) Timestamp {
	return Timestamp{
		Year:   uint16(tm.Year()),
		Month:  uint8(tm.Month()),
		Day:    uint8(tm.Day()),
		Hour:   uint8(tm.Hour()),
		Minute: uint8(tm.Minute()),
		Second: uint8(tm.Second()),
	}
}

// Time converts t to a time.Time in UTC. The canonical zero value maps
// to the Unix epoch.
func (t Timestamp) Time() time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day), int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}
