// Package slp implements the Serial Link Protocol datagram framing layer:
// a signature-framed datagram with a header checksum and
// a trailing CRC-16, the bottom layer of the serial HotSync stack.
package slp

import (
	"bufio"
	"io"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

// PayloadType identifies the protocol carried in an SLP datagram.
type PayloadType byte

const (
	TypeSystem   PayloadType = 0
	TypePADP     PayloadType = 2
	TypeLoopback PayloadType = 3
)

var signature = [3]byte{0xBE, 0xEF, 0xED}

const headerLen = 10 // signature(3) dest(1) src(1) type(1) len(2) xid(1) checksum(1)

// Datagram is one SLP frame.
type Datagram struct {
	Dest    byte
	Src     byte
	Type    PayloadType
	Xid     byte
	Payload []byte
}

// Emit serializes d, computing the header checksum and trailing CRC-16
// over the full frame.
func Emit(d Datagram) []byte {
	w := codec.NewWriterSize(headerLen + len(d.Payload) + 2)
	w.RawBytes(signature[:])
	w.U8(d.Dest)
	w.U8(d.Src)
	w.U8(byte(d.Type))
	w.U16(uint16(len(d.Payload)))
	w.U8(d.Xid)
	header := w.Bytes()
	w.U8(codec.ChecksumMod256(header))
	w.RawBytes(d.Payload)
	full := w.Bytes()
	crc := codec.CRC16(full)
	w.U16(crc)
	return w.Bytes()
}

// Reader is a stateful SLP datagram reader: it accumulates bytes from an
// underlying stream until it has a full 10-byte header, derives the total
// datagram length, then waits for the remainder and verifies the CRC-16.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps an underlying byte stream for sequential datagram reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadDatagram blocks until a complete, validated datagram has arrived.
func (r *Reader) ReadDatagram() (Datagram, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r.br, header); err != nil {
		return Datagram{}, codec.WrapError(codec.KindTransport, err, "slp: reading header")
	}

	if header[0] != signature[0] || header[1] != signature[1] || header[2] != signature[2] {
		return Datagram{}, codec.FramingError("slp: bad signature % x", header[0:3]).WithBytes(header)
	}

	wantChecksum := codec.ChecksumMod256(header[:9])
	if header[9] != wantChecksum {
		return Datagram{}, codec.FramingError("slp: header checksum mismatch: got 0x%02x want 0x%02x", header[9], wantChecksum).WithBytes(header)
	}

	d := Datagram{
		Dest: header[3],
		Src:  header[4],
		Type: PayloadType(header[5]),
		Xid:  header[8],
	}
	length := int(header[6])<<8 | int(header[7])

	rest := make([]byte, length+2)
	if _, err := io.ReadFull(r.br, rest); err != nil {
		return Datagram{}, codec.WrapError(codec.KindTransport, err, "slp: reading payload+crc")
	}

	payload := rest[:length]
	gotCRC := uint16(rest[length])<<8 | uint16(rest[length+1])
	full := append(append([]byte(nil), header...), payload...)
	wantCRC := codec.CRC16(full)
	if gotCRC != wantCRC {
		return Datagram{}, codec.FramingError("slp: crc mismatch: got 0x%04x want 0x%04x", gotCRC, wantCRC)
	}

	d.Payload = append([]byte(nil), payload...)
	return d, nil
}
