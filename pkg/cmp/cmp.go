// Package cmp implements the Connection Management Protocol handshake:
// baud-rate negotiation between host and device at the
// start of a serial HotSync session.
package cmp

import (
	"context"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
	"github.com/palmsync/hotsync-nexus/pkg/padp"
)

// MsgType identifies the kind of CMP message.
type MsgType byte

const (
	TypeWakeup  MsgType = 0
	TypeInit    MsgType = 1
	TypeAbort   MsgType = 2
)

const wireLen = 10 // type(1) flags(1) version(2) reserved(2) baudRate(4)

const flagChangeBaud = 0x80

// Message is one CMP packet.
type Message struct {
	Type       MsgType
	ChangeBaud bool
	Version    uint16
	BaudRate   uint32
}

// Encode serializes m to its 10-byte wire form.
func (m Message) Encode() []byte {
	var flags byte
	if m.ChangeBaud {
		flags |= flagChangeBaud
	}
	w := codec.NewWriterSize(wireLen)
	w.U8(byte(m.Type))
	w.U8(flags)
	w.U16(m.Version)
	w.U16(0) // reserved
	w.U32(m.BaudRate)
	return w.Bytes()
}

// DecodeMessage parses a raw CMP packet.
func DecodeMessage(data []byte) (Message, error) {
	if len(data) < wireLen {
		return Message{}, codec.FramingError("cmp: message too short: %d bytes, want %d", len(data), wireLen)
	}
	r := codec.NewReader(data)
	m := Message{}
	m.Type = MsgType(r.U8())
	flags := r.U8()
	m.ChangeBaud = flags&flagChangeBaud != 0
	m.Version = r.U16()
	r.Skip(2)
	m.BaudRate = r.U32()
	if err := r.Err(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Transport is the minimal send/receive contract CMP needs: a single
// request/response exchange of opaque PADP-framed byte messages (CMP
// travels inside PADP fragments over SLP, the same as DLP traffic).
type Transport interface {
	Send(msg []byte) error
	Receive() ([]byte, error)
}

// link adapts a *padp.Link (which takes a context) to the simple
// synchronous Transport contract the handshake wants.
type link struct{ l *padp.Link }

// NewTransport wraps a padp.Link for CMP's blocking request/reply style.
func NewTransport(l *padp.Link) Transport { return &link{l: l} }

func (t *link) Send(msg []byte) error {
	return t.l.Send(context.Background(), msg)
}

func (t *link) Receive() ([]byte, error) {
	return t.l.Receive(context.Background())
}

// Handshake performs the host side of the CMP exchange over tr: wait for
// the device's wakeup announcing its maximum baud rate, then reply with
// an init message selecting min(deviceMax, hostMax). hostMaxBaud of 0
// means the host has no baud preference of its own (e.g. USB-tunneled
// serial, where there is no physical line to reconfigure) — the message
// exchange still happens, but the caller should treat any resulting
// ChangeBaud as a no-op rather than reconfiguring a real UART.
func Handshake(tr Transport, hostMaxBaud uint32) (selected uint32, err error) {
	raw, err := tr.Receive()
	if err != nil {
		return 0, codec.WrapError(codec.KindTransport, err, "cmp: waiting for wakeup")
	}
	wakeup, err := DecodeMessage(raw)
	if err != nil {
		return 0, err
	}
	if wakeup.Type != TypeWakeup {
		return 0, codec.ProtocolError("cmp: expected wakeup, got type %d", wakeup.Type)
	}

	baud := wakeup.BaudRate
	if hostMaxBaud != 0 && (baud == 0 || hostMaxBaud < baud) {
		baud = hostMaxBaud
	}

	init := Message{Type: TypeInit, ChangeBaud: baud != 0, Version: wakeup.Version, BaudRate: baud}
	if err := tr.Send(init.Encode()); err != nil {
		return 0, codec.WrapError(codec.KindTransport, err, "cmp: sending init")
	}
	return baud, nil
}
