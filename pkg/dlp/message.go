package dlp

import "github.com/palmsync/hotsync-nexus/pkg/codec"

const responseFlag = 0x80

// Request is an outbound DLP command: a command id and its arguments
//.
type Request struct {
	Command byte
	Args    []Arg
}

// Encode serializes r to its wire form.
func (r Request) Encode() []byte {
	w := codec.NewWriter()
	w.U8(r.Command)
	w.U8(byte(len(r.Args)))
	for _, a := range r.Args {
		encodeArg(w, a)
	}
	return w.Bytes()
}

// DecodeRequest parses a raw DLP request (used by a device-side stub or
// by tests exercising the wire format from both ends).
func DecodeRequest(data []byte) (Request, error) {
	r := codec.NewReader(data)
	req := Request{}
	req.Command = r.U8()
	nargs := r.U8()
	for i := byte(0); i < nargs && r.Err() == nil; i++ {
		req.Args = append(req.Args, decodeArg(r))
	}
	if err := r.Err(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Response is an inbound DLP reply: the echoed command id, a status
// code, and arguments present only when status is OK.
type Response struct {
	Command byte
	Status  Status
	Args    []Arg
}

// Encode serializes resp to its wire form.
func (resp Response) Encode() []byte {
	w := codec.NewWriter()
	w.U8(resp.Command | responseFlag)
	w.U8(byte(len(resp.Args)))
	w.U16(uint16(resp.Status))
	for _, a := range resp.Args {
		encodeArg(w, a)
	}
	return w.Bytes()
}

// DecodeResponse parses a raw DLP response.
func DecodeResponse(data []byte) (Response, error) {
	r := codec.NewReader(data)
	resp := Response{}
	cmdByte := r.U8()
	if cmdByte&responseFlag == 0 {
		return Response{}, codec.ProtocolError("dlp: expected response marker bit set, got command byte 0x%02x", cmdByte)
	}
	resp.Command = cmdByte &^ responseFlag
	nargs := r.U8()
	resp.Status = Status(r.U16())
	for i := byte(0); i < nargs && r.Err() == nil; i++ {
		resp.Args = append(resp.Args, decodeArg(r))
	}
	if err := r.Err(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Arg looks up an argument by id in the response.
func (resp Response) Arg(id ArgID) (Arg, bool) { return findArg(resp.Args, id) }

// Arg looks up an argument by id in the request.
func (r Request) Arg(id ArgID) (Arg, bool) { return findArg(r.Args, id) }
