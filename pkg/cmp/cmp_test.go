package cmp

import "testing"

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{Type: TypeInit, ChangeBaud: true, Version: 0x0101, BaudRate: 115200}
	encoded := m.Encode()
	if len(encoded) != wireLen {
		t.Fatalf("encoded length = %d, want %d", len(encoded), wireLen)
	}
	decoded, err := DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage error: %v", err)
	}
	if decoded != m {
		t.Errorf("decoded = %+v, want %+v", decoded, m)
	}
}

func TestDecodeMessageTooShort(t *testing.T) {
	if _, err := DecodeMessage([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected framing error for short cmp message")
	}
}

type fakeTransport struct {
	toSend  [][]byte
	sent    [][]byte
	recvIdx int
}

func (f *fakeTransport) Send(msg []byte) error {
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, error) {
	msg := f.toSend[f.recvIdx]
	f.recvIdx++
	return msg, nil
}

func TestHandshakeSelectsMinimumBaud(t *testing.T) {
	wakeup := Message{Type: TypeWakeup, BaudRate: 230400, Version: 0x0101}
	tr := &fakeTransport{toSend: [][]byte{wakeup.Encode()}}

	selected, err := Handshake(tr, 115200)
	if err != nil {
		t.Fatalf("Handshake error: %v", err)
	}
	if selected != 115200 {
		t.Errorf("selected baud = %d, want 115200", selected)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected exactly one reply sent, got %d", len(tr.sent))
	}
	reply, err := DecodeMessage(tr.sent[0])
	if err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Type != TypeInit || reply.BaudRate != 115200 || !reply.ChangeBaud {
		t.Errorf("reply = %+v, want init/115200/changeBaud", reply)
	}
}

func TestHandshakeTunneledSerialNoOpBaud(t *testing.T) {
	wakeup := Message{Type: TypeWakeup, BaudRate: 57600, Version: 0x0101}
	tr := &fakeTransport{toSend: [][]byte{wakeup.Encode()}}

	selected, err := Handshake(tr, 0)
	if err != nil {
		t.Fatalf("Handshake error: %v", err)
	}
	if selected != 57600 {
		t.Errorf("selected baud = %d, want the device's announced 57600 when host has no preference", selected)
	}
}

func TestHandshakeRejectsWrongFirstMessage(t *testing.T) {
	init := Message{Type: TypeInit, BaudRate: 9600}
	tr := &fakeTransport{toSend: [][]byte{init.Encode()}}

	if _, err := Handshake(tr, 9600); err == nil {
		t.Fatal("expected protocol error when device doesn't open with wakeup")
	}
}
