// Package dlp implements the Desktop Link Protocol request/response
// engine: argument packing, command/response
// framing, status codes, and the typed command catalog that drives a
// HotSync session.
package dlp

import (
	"github.com/palmsync/hotsync-nexus/pkg/codec"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
)

// Transport is the minimal request/reply contract the DLP engine needs
// from whichever framing stack carries it (PADP-over-SLP for serial,
// the network datagram layer for TCP). Exactly one Send is followed by
// exactly one Receive per Execute call.
type Transport interface {
	Send(msg []byte) error
	Receive() ([]byte, error)
}

// Engine is the synchronous DLP request/response engine layered on a
// Transport.
type Engine struct {
	tr  Transport
	log *logger.Logger
}

// NewEngine wires an Engine on top of tr.
func NewEngine(tr Transport, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	return &Engine{tr: tr, log: log.WithComponent("dlp")}
}

// Execute sends req and waits for its matching response. Exactly one
// outbound message is followed by exactly one inbound message
//. If the response status is not OK and is not a
// member of ignoredStatuses, Execute returns a *codec.RemoteErr together
// with the decoded response.
func (e *Engine) Execute(req Request, ignoredStatuses ...Status) (Response, error) {
	if err := e.tr.Send(req.Encode()); err != nil {
		return Response{}, codec.WrapError(codec.KindTransport, err, "dlp: sending command 0x%02x", req.Command)
	}
	raw, err := e.tr.Receive()
	if err != nil {
		return Response{}, codec.WrapError(codec.KindTransport, err, "dlp: receiving reply to command 0x%02x", req.Command)
	}
	resp, err := DecodeResponse(raw)
	if err != nil {
		return Response{}, err
	}
	if resp.Command != req.Command {
		return Response{}, codec.ProtocolError("dlp: response command 0x%02x does not match request 0x%02x", resp.Command, req.Command)
	}
	if resp.Status != StatusOK {
		for _, s := range ignoredStatuses {
			if s == resp.Status {
				return resp, nil
			}
		}
		return resp, &codec.RemoteErr{Status: uint16(resp.Status), Command: req.Command}
	}
	return resp, nil
}
