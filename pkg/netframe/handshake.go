package netframe

import (
	"bytes"
	"io"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

// The network handshake is a fixed three-request/two-response exchange
// that precedes any DLP traffic. All five messages are fixed byte
// sequences played back as-is: the host side (Handshake) reads each
// device message by its expected length without inspecting its
// contents, while the device side (ClientHandshake) checks both replies
// byte for byte.
var (
	hostGreeting1 = []byte{0x90, 0x01, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	hostGreeting2 = []byte{0x90, 0x02, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	hostGreeting3 = []byte{0x90, 0x03, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	deviceReply1 = []byte{0x90, 0x01, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	deviceReply2 = []byte{0x90, 0x02, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// Handshake performs the host side of the fixed network exchange over
// rw: read message 1, write reply 1, read message 2, write reply 2, read
// message 3, then the caller may begin DLP traffic.
func Handshake(rw io.ReadWriter) error {
	if err := readExact(rw, len(hostGreeting1)); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: reading handshake message 1")
	}
	if _, err := rw.Write(deviceReply1); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: writing handshake reply 1")
	}
	if err := readExact(rw, len(hostGreeting2)); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: reading handshake message 2")
	}
	if _, err := rw.Write(deviceReply2); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: writing handshake reply 2")
	}
	if err := readExact(rw, len(hostGreeting3)); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: reading handshake message 3")
	}
	return nil
}

func readExact(r io.Reader, n int) error {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return err
}

// ClientHandshake performs the device side, for testing and for the
// emulator/development bridge: it writes the three fixed greetings and
// reads back the two replies, verifying they match the expected bytes.
func ClientHandshake(rw io.ReadWriter) error {
	if _, err := rw.Write(hostGreeting1); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: writing greeting 1")
	}
	reply1 := make([]byte, len(deviceReply1))
	if _, err := io.ReadFull(rw, reply1); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: reading reply 1")
	}
	if !bytes.Equal(reply1, deviceReply1) {
		return codec.ProtocolError("netframe: unexpected handshake reply 1: % x", reply1)
	}

	if _, err := rw.Write(hostGreeting2); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: writing greeting 2")
	}
	reply2 := make([]byte, len(deviceReply2))
	if _, err := io.ReadFull(rw, reply2); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: reading reply 2")
	}
	if !bytes.Equal(reply2, deviceReply2) {
		return codec.ProtocolError("netframe: unexpected handshake reply 2: % x", reply2)
	}

	if _, err := rw.Write(hostGreeting3); err != nil {
		return codec.WrapError(codec.KindTransport, err, "netframe: writing greeting 3")
	}
	return nil
}
