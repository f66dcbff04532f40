// Package netframe implements the network datagram framing layer
// and its fixed handshake: the alternative to the
// SLP+PADP serial stack used when HotSync runs over TCP.
package netframe

import (
	"bufio"
	"io"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

const headerLen = 6 // type(1) xid(1) len32

// frameType is always 1 on the wire; there is no second type in this
// layer.
const frameType = 1

// Writer frames outbound payloads and tracks its own xid sequence,
// wrapping 1..255 and skipping 0.
type Writer struct {
	w       io.Writer
	nextXid byte
}

// NewWriter wraps the underlying stream for sequential datagram writes.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteDatagram frames and writes payload, returning the xid used.
func (w *Writer) WriteDatagram(payload []byte) (xid byte, err error) {
	w.nextXid++
	if w.nextXid == 0 {
		w.nextXid = 1
	}
	xid = w.nextXid

	buf := codec.NewWriterSize(headerLen + len(payload))
	buf.U8(frameType)
	buf.U8(xid)
	buf.U32(uint32(len(payload)))
	buf.RawBytes(payload)
	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return xid, codec.WrapError(codec.KindTransport, err, "netframe: writing datagram")
	}
	return xid, nil
}

// Datagram is one received network-framed message.
type Datagram struct {
	Xid     byte
	Payload []byte
}

// Reader accumulates a 6-byte header then the declared payload length,
// with no ACKs or retries — the underlying stream is assumed reliable
//.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps the underlying stream for sequential datagram reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadDatagram blocks until a complete datagram has arrived.
func (r *Reader) ReadDatagram() (Datagram, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r.br, header); err != nil {
		return Datagram{}, codec.WrapError(codec.KindTransport, err, "netframe: reading header")
	}
	if header[0] != frameType {
		return Datagram{}, codec.FramingError("netframe: unexpected frame type %d, want %d", header[0], frameType)
	}
	hr := codec.NewReader(header)
	hr.U8() // type, already checked
	xid := hr.U8()
	length := hr.U32()

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r.br, payload); err != nil {
			return Datagram{}, codec.WrapError(codec.KindTransport, err, "netframe: reading payload")
		}
	}
	return Datagram{Xid: xid, Payload: payload}, nil
}
