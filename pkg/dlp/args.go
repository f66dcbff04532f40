package dlp

import "github.com/palmsync/hotsync-nexus/pkg/codec"

// ArgID is a 6-bit DLP argument identifier, starting at 0x20.
type ArgID byte

// BaseArgID is the smallest assignable argument id.
const BaseArgID ArgID = 0x20

const (
	kindMaskTiny  = 0x00
	kindMaskShort = 0x80
	kindMaskLong  = 0x40
	idMask        = 0x3F
)

// Arg is one encoded DLP argument.
type Arg struct {
	ID   ArgID
	Data []byte
}

// encodeArg appends id+data to w, selecting the smallest of the three
// argument encodings (tiny/short/long) whose max payload covers
// len(data) ( property 5).
func encodeArg(w *codec.Writer, a Arg) {
	n := len(a.Data)
	switch {
	case n <= 0xFF:
		w.U8(byte(a.ID)&idMask | kindMaskTiny)
		w.U8(byte(n))
	case n <= 0xFFFF:
		w.U8(byte(a.ID)&idMask | kindMaskShort)
		w.U8(0)
		w.U16(uint16(n))
	default:
		w.U8(byte(a.ID)&idMask | kindMaskLong)
		w.U8(0)
		w.U32(uint32(n))
	}
	w.RawBytes(a.Data)
}

// decodeArg reads one argument header + payload from r.
func decodeArg(r *codec.Reader) Arg {
	idByte := r.U8()
	id := ArgID(idByte & idMask)
	kind := idByte &^ idMask

	var length int
	switch kind {
	case kindMaskTiny:
		length = int(r.U8())
	case kindMaskShort:
		r.U8() // reserved zero byte
		length = int(r.U16())
	case kindMaskLong:
		r.U8() // reserved zero byte
		length = int(r.U32())
	default:
		r.U8()
		length = int(r.U16())
	}
	data := r.Bytes(length)
	return Arg{ID: id, Data: data}
}

// EncodeArgs serializes args in declared order.
func EncodeArgs(args []Arg) []byte {
	w := codec.NewWriter()
	for _, a := range args {
		encodeArg(w, a)
	}
	return w.Bytes()
}

// findArg returns the argument with the given id, if present.
func findArg(args []Arg, id ArgID) (Arg, bool) {
	for _, a := range args {
		if a.ID == id {
			return a, true
		}
	}
	return Arg{}, false
}
