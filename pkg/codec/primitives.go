package codec

import (
	"encoding/binary"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultTextEncoding is the text encoding used for device strings (names,
// user names) when the caller does not specify one. Palm OS devices emit
// these fields in Windows-1252/Latin-1, not UTF-8.
var DefaultTextEncoding encoding.Encoding = charmap.Windows1252

// Reader walks a byte slice field by field, tracking its own offset and
// the first error encountered so callers can chain calls without checking
// after every read (mirrors the teacher's flat offset-constant style in
// pkg/protocol/dmrd.go, generalized into a cursor).
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader wraps buf for sequential field decoding.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Err returns the first error encountered during reads, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the reader's current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = FramingError("short read: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
		return false
	}
	return true
}

// U8 reads an unsigned 8-bit integer.
func (r *Reader) U8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

// U16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

// U24 reads a big-endian unsigned 24-bit integer, MSB first.
func (r *Reader) U24() uint32 {
	if !r.need(3) {
		return 0
	}
	v := uint32(r.buf[r.off])<<16 | uint32(r.buf[r.off+1])<<8 | uint32(r.buf[r.off+2])
	r.off += 3
	return v
}

// U32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// I32 reads a big-endian signed 32-bit integer.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// Tag reads a fixed n-byte ASCII identifier (e.g. a 4-byte type/creator tag).
func (r *Reader) Tag(n int) string {
	if !r.need(n) {
		return ""
	}
	v := string(r.buf[r.off : r.off+n])
	r.off += n
	return v
}

// Bytes reads n raw bytes, copying them out of the underlying buffer.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.buf[r.off:r.off+n])
	r.off += n
	return v
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) {
	if !r.need(n) {
		return
	}
	r.off += n
}

// CString reads a NUL-terminated string of at most maxLen bytes (the field
// width), decoding it with enc (DefaultTextEncoding if nil).
func (r *Reader) CString(maxLen int, enc encoding.Encoding) string {
	if !r.need(maxLen) {
		return ""
	}
	field := r.buf[r.off : r.off+maxLen]
	r.off += maxLen
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	if enc == nil {
		enc = DefaultTextEncoding
	}
	decoded, err := enc.NewDecoder().Bytes(field[:n])
	if err != nil {
		r.err = WrapError(KindEncoding, err, "decoding null-terminated string")
		return string(field[:n])
	}
	return string(decoded)
}

// LengthPrefixedArray reads a 16-bit BE count followed by count elements,
// invoking readOne for each. This mirrors metadata lists and
// optional-argument lists used throughout the DLP wire format.
func (r *Reader) LengthPrefixedArray(readOne func(r *Reader)) uint16 {
	count := r.U16()
	for i := uint16(0); i < count && r.err == nil; i++ {
		readOne(r)
	}
	return count
}

// Writer accumulates encoded fields into a growing byte slice.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// NewWriterSize creates a Writer with preallocated capacity.
func NewWriterSize(n int) *Writer { return &Writer{buf: make([]byte, 0, n)} }

// Err returns the first error encountered during writes, if any.
func (w *Writer) Err() error { return w.err }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// U8 appends an unsigned 8-bit integer.
func (w *Writer) U8(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// U16 appends a big-endian unsigned 16-bit integer.
func (w *Writer) U16(v uint16) *Writer {
	w.buf = append(w.buf, byte(v>>8), byte(v))
	return w
}

// U24 appends a big-endian unsigned 24-bit integer, MSB first.
func (w *Writer) U24(v uint32) *Writer {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
	return w
}

// U32 appends a big-endian unsigned 32-bit integer.
func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// I32 appends a big-endian signed 32-bit integer.
func (w *Writer) I32(v int32) *Writer { return w.U32(uint32(v)) }

// Tag appends an exactly-n-byte ASCII identifier, validating its length.
func (w *Writer) Tag(s string, n int) *Writer {
	if len(s) != n {
		w.err = ValidationError("tag %q must be exactly %d bytes, got %d", s, n, len(s))
		return w
	}
	w.buf = append(w.buf, s...)
	return w
}

// RawBytes appends raw bytes verbatim.
func (w *Writer) RawBytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// CString appends a string encoded with enc (DefaultTextEncoding if nil),
// NUL-padded to exactly width bytes. A string whose encoded form needs
// width bytes or more (leaving no room for the NUL) is not truncated: it
// sets a validation error and nothing is appended.
func (w *Writer) CString(s string, width int, enc encoding.Encoding) *Writer {
	if enc == nil {
		enc = DefaultTextEncoding
	}
	encoded, err := enc.NewEncoder().String(s)
	if err != nil {
		w.err = WrapError(KindEncoding, err, "encoding string %q", s)
		return w
	}
	if len(encoded) >= width {
		w.err = ValidationError("string %q too long for %d-byte field", s, width)
		return w
	}
	field := make([]byte, width)
	copy(field, encoded)
	w.buf = append(w.buf, field...)
	return w
}

// LengthPrefixedArray writes a 16-bit BE count followed by n calls to
// writeOne.
func (w *Writer) LengthPrefixedArray(n int, writeOne func(w *Writer, i int)) *Writer {
	w.U16(uint16(n))
	for i := 0; i < n && w.err == nil; i++ {
		writeOne(w, i)
	}
	return w
}
