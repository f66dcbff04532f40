package dlp

import (
	"bytes"
	"testing"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

func TestArgEncodingSelectsSmallestFit(t *testing.T) {
	args := []Arg{
		{ID: BaseArgID, Data: make([]byte, 200)},
		{ID: BaseArgID + 1, Data: make([]byte, 70000)},
	}
	encoded := EncodeArgs(args)

	// First header: tiny (2 bytes: id, len8=200).
	if encoded[0]&0xC0 != kindMaskTiny {
		t.Errorf("first arg kind bits = %#x, want tiny", encoded[0]&0xC0)
	}
	if encoded[1] != 200 {
		t.Errorf("first arg len byte = %d, want 200", encoded[1])
	}

	// Second header begins right after tiny header + 200-byte payload.
	secondHeaderStart := 2 + 200
	// 70000 bytes exceeds the short form's 16-bit length, so it is long.
	if encoded[secondHeaderStart]&0xC0 != kindMaskLong {
		t.Errorf("second arg kind bits = %#x, want long", encoded[secondHeaderStart]&0xC0)
	}
}

func TestArgEncodingSwappedSizesSameEncodings(t *testing.T) {
	args := []Arg{
		{ID: BaseArgID, Data: make([]byte, 70000)},
		{ID: BaseArgID + 1, Data: make([]byte, 200)},
	}
	encoded := EncodeArgs(args)
	if encoded[0]&0xC0 != kindMaskLong {
		t.Errorf("first arg (70000 bytes) kind = %#x, want long", encoded[0]&0xC0)
	}
	headerLen := 6
	if encoded[headerLen+70000]&0xC0 != kindMaskTiny {
		t.Errorf("second arg (200 bytes) kind = %#x, want tiny", encoded[headerLen+70000]&0xC0)
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	req := Request{Command: cmdOpenDB, Args: []Arg{{ID: argStd, Data: []byte("MemoDB")}}}
	encoded := req.Encode()
	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if decoded.Command != req.Command {
		t.Errorf("command = %#x, want %#x", decoded.Command, req.Command)
	}
	if !bytes.Equal(decoded.Args[0].Data, req.Args[0].Data) {
		t.Errorf("arg data mismatch")
	}

	resp := Response{Command: cmdOpenDB, Status: StatusOK, Args: []Arg{{ID: argStd, Data: []byte{1}}}}
	encodedResp := resp.Encode()
	decodedResp, err := DecodeResponse(encodedResp)
	if err != nil {
		t.Fatalf("DecodeResponse error: %v", err)
	}
	if decodedResp.Status != StatusOK || decodedResp.Command != cmdOpenDB {
		t.Errorf("decoded response = %+v", decodedResp)
	}
}

func TestDecodeResponseRejectsMissingResponseFlag(t *testing.T) {
	raw := Request{Command: cmdOpenDB}.Encode()
	if _, err := DecodeResponse(raw); err == nil {
		t.Fatal("expected protocol error decoding a request as a response")
	}
}

// fakeTransport is a scripted, in-memory Transport for exercising Engine
// without a real framing stack underneath.
type fakeTransport struct {
	sent  [][]byte
	reply [][]byte
	idx   int
}

func (f *fakeTransport) Send(msg []byte) error {
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, error) {
	msg := f.reply[f.idx]
	f.idx++
	return msg, nil
}

func TestEngineExecuteHappyPath(t *testing.T) {
	resp := Response{Command: cmdOpenConduit, Status: StatusOK}
	tr := &fakeTransport{reply: [][]byte{resp.Encode()}}
	e := NewEngine(tr, nil)

	got, err := e.Execute(Request{Command: cmdOpenConduit})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got.Status != StatusOK {
		t.Errorf("status = %v, want OK", got.Status)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected exactly one outbound message, got %d", len(tr.sent))
	}
}

func TestEngineExecuteReturnsRemoteErrorOnBadStatus(t *testing.T) {
	resp := Response{Command: cmdOpenDB, Status: StatusNotFound}
	tr := &fakeTransport{reply: [][]byte{resp.Encode()}}
	e := NewEngine(tr, nil)

	_, err := e.Execute(Request{Command: cmdOpenDB})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	remoteErr, ok := err.(*codec.RemoteErr)
	if !ok {
		t.Fatalf("error type = %T, want *codec.RemoteErr", err)
	}
	if remoteErr.Status != uint16(StatusNotFound) {
		t.Errorf("status = %d, want %d", remoteErr.Status, StatusNotFound)
	}
}

func TestEngineExecuteHonorsIgnoredStatuses(t *testing.T) {
	resp := Response{Command: cmdReadDBList, Status: StatusNotFound}
	tr := &fakeTransport{reply: [][]byte{resp.Encode()}}
	e := NewEngine(tr, nil)

	got, err := e.Execute(Request{Command: cmdReadDBList}, StatusNotFound)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got.Status != StatusNotFound {
		t.Errorf("status = %v, want NOT_FOUND", got.Status)
	}
}

func TestUserInfoRoundTripThroughWriteRead(t *testing.T) {
	info := UserInfo{UserID: 42, ViewerID: 1, LastSyncPC: 0xAABBCCDD, UserName: "palmsync"}
	w := newArgWriter()
	w.u32(info.UserID)
	w.u32(info.ViewerID)
	w.u32(info.LastSyncPC)
	w.raw(info.LastSyncDate.Encode())
	w.u8(byte(len(info.UserName) + 1))
	w.u8(0)
	w.cstringNUL(info.UserName)

	readResp := Response{Command: cmdReadUserInfo, Status: StatusOK, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	tr := &fakeTransport{reply: [][]byte{readResp.Encode()}}
	e := NewEngine(tr, nil)

	got, err := e.ReadUserInfo()
	if err != nil {
		t.Fatalf("ReadUserInfo error: %v", err)
	}
	if got.UserID != info.UserID || got.UserName != info.UserName {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestTimestampZeroRoundTrip(t *testing.T) {
	var ts Timestamp
	encoded := ts.Encode()
	decoded, err := DecodeTimestamp(encoded)
	if err != nil {
		t.Fatalf("DecodeTimestamp error: %v", err)
	}
	if !decoded.IsZero() {
		t.Errorf("decoded = %+v, want zero", decoded)
	}
}
