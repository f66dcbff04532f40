package dlp

import "github.com/palmsync/hotsync-nexus/pkg/codec"

// argReader/argWriter are thin wrappers around codec.Reader/Writer for
// decoding/encoding the fixed-layout payloads carried inside a single
// DLP argument (as opposed to the argument header itself, which
// args.go/message.go own). Kept unexported: command.go callers never
// see raw codec types, only typed request/response structs.
type argReader struct{ r *codec.Reader }

func newArgReader(data []byte) *argReader { return &argReader{r: codec.NewReader(data)} }

func (a *argReader) u8() byte     { return a.r.U8() }
func (a *argReader) u16() uint16  { return a.r.U16() }
func (a *argReader) u32() uint32  { return a.r.U32() }
func (a *argReader) skip(n int)   { a.r.Skip(n) }
func (a *argReader) take(n int) []byte { return a.r.Bytes(n) }
func (a *argReader) rest() []byte { return a.r.Bytes(a.r.Remaining()) }

// str reads n bytes and trims at the first NUL, decoding with the
// default device text encoding.
func (a *argReader) str(n int) string {
	raw := a.r.Bytes(n)
	for i, b := range raw {
		if b == 0 {
			raw = raw[:i]
			break
		}
	}
	decoded, err := codec.DefaultTextEncoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

type argWriter struct{ w *codec.Writer }

func newArgWriter() *argWriter { return &argWriter{w: codec.NewWriter()} }

func (a *argWriter) u8(v byte)       { a.w.U8(v) }
func (a *argWriter) u16(v uint16)    { a.w.U16(v) }
func (a *argWriter) u32(v uint32)    { a.w.U32(v) }
func (a *argWriter) raw(b []byte)    { a.w.RawBytes(b) }
func (a *argWriter) bytes() []byte   { return a.w.Bytes() }

// cstring appends s encoded with the default device text encoding,
// without any NUL terminator or padding (for fixed 4-byte tags, callers
// pad the string themselves before calling).
func (a *argWriter) cstring(s string) {
	encoded, err := codec.DefaultTextEncoding.NewEncoder().String(s)
	if err != nil {
		encoded = []byte(s)
	}
	a.w.RawBytes(encoded)
}

// cstringNUL appends s followed by a single NUL terminator.
func (a *argWriter) cstringNUL(s string) {
	a.cstring(s)
	a.w.U8(0)
}

// tag4 appends a fixed 4-byte ASCII type/creator tag, NUL-padding short
// values rather than rejecting them (DLP tags are always exactly 4
// bytes on the wire; codec.Writer.Tag is stricter than this call site
// wants).
func (a *argWriter) tag4(s string) {
	b := make([]byte, 4)
	copy(b, s)
	a.w.RawBytes(b)
}
