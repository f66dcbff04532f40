// Package padp implements the Packet Assembly/Disassembly Protocol:
// reliable, ordered, fragmented delivery on top of SLP,
// with ACK/retry and duplicate suppression.
package padp

import "github.com/palmsync/hotsync-nexus/pkg/codec"

// FragType identifies the kind of PADP fragment.
type FragType byte

const (
	TypeData    FragType = 1
	TypeAck     FragType = 2
	TypeTickle  FragType = 4
	TypeAbort   FragType = 8
)

const (
	attrFirst    = 0x01
	attrLast     = 0x02
	attrMemError = 0x04
	attrLongForm = 0x08
)

// Fragment is one PADP fragment. Its transaction id
// is not part of the fragment body — it rides in the enclosing SLP
// datagram's xid field.
type Fragment struct {
	Type           FragType
	First          bool
	Last           bool
	MemError       bool
	LongForm       bool
	LengthOrOffset uint32
	Payload        []byte
}

// Encode serializes the fragment. LongForm selects a 4-byte
// lengthOrOffset field instead of the default 2-byte one.
func (f Fragment) Encode() []byte {
	var attrs byte
	if f.First {
		attrs |= attrFirst
	}
	if f.Last {
		attrs |= attrLast
	}
	if f.MemError {
		attrs |= attrMemError
	}
	if f.LongForm {
		attrs |= attrLongForm
	}

	w := codec.NewWriter()
	w.U8(byte(f.Type))
	w.U8(attrs)
	if f.LongForm {
		w.U32(f.LengthOrOffset)
	} else {
		w.U16(uint16(f.LengthOrOffset))
	}
	w.RawBytes(f.Payload)
	return w.Bytes()
}

// DecodeFragment parses a raw PADP fragment.
func DecodeFragment(data []byte) (Fragment, error) {
	if len(data) < 2 {
		return Fragment{}, codec.ProtocolError("padp: fragment too short: %d bytes", len(data))
	}
	r := codec.NewReader(data)
	f := Fragment{}
	f.Type = FragType(r.U8())
	attrs := r.U8()
	f.First = attrs&attrFirst != 0
	f.Last = attrs&attrLast != 0
	f.MemError = attrs&attrMemError != 0
	f.LongForm = attrs&attrLongForm != 0
	if f.LongForm {
		f.LengthOrOffset = r.U32()
	} else {
		f.LengthOrOffset = uint32(r.U16())
	}
	f.Payload = r.Bytes(r.Remaining())
	if err := r.Err(); err != nil {
		return Fragment{}, err
	}
	return f, nil
}
