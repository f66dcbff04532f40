package session

import (
	"context"
	"io"

	"github.com/palmsync/hotsync-nexus/pkg/cmp"
	"github.com/palmsync/hotsync-nexus/pkg/codec"
	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
	"github.com/palmsync/hotsync-nexus/pkg/netframe"
	"github.com/palmsync/hotsync-nexus/pkg/padp"
	"github.com/palmsync/hotsync-nexus/pkg/slp"
)

// Transport variants: Serial uses SLP+PADP
// framing with a CMP baud-rate handshake; Network uses the lightweight
// datagram layer with a fixed byte-exchange handshake.
type transportKind int

const (
	kindSerial transportKind = iota
	kindNetwork
)

// Session owns a transport stream, a framing layer, and a DLP engine
//. Construction wires: raw stream -> (serial or network
// framing) -> DLP engine.
type Session struct {
	kind transportKind
	raw  io.ReadWriter
	log  *logger.Logger

	padpLink  *padp.Link
	netReader *netframe.Reader
	netWriter *netframe.Writer
	hostBaud  uint32

	Engine *dlp.Engine

	SysInfo  dlp.SysInfo
	UserInfo dlp.UserInfo
}

// NewSerialSession wires a session on the SLP+PADP+CMP serial stack.
func NewSerialSession(stream io.ReadWriter, rec *Recorder, log *logger.Logger) *Session {
	tapped := NewTappedStream(stream, rec)
	link := padp.NewLink(slp.NewReader(tapped), tapped, log)
	s := &Session{kind: kindSerial, raw: tapped, log: log, padpLink: link}
	s.Engine = dlp.NewEngine(dlp.PADPTransport{Link: link}, log)
	return s
}

// NewNetworkSession wires a session on the lightweight network datagram
// stack.
func NewNetworkSession(stream io.ReadWriter, rec *Recorder, log *logger.Logger) *Session {
	tapped := NewTappedStream(stream, rec)
	nr := netframe.NewReader(tapped)
	nw := netframe.NewWriter(tapped)
	s := &Session{kind: kindNetwork, raw: tapped, log: log, netReader: nr, netWriter: nw}
	s.Engine = dlp.NewEngine(dlp.NetTransport{Reader: nr, Writer: nw}, log)
	return s
}

// WithHostBaud sets the host's maximum baud rate offered during the CMP
// handshake on a serial session (0 means no physical preference, e.g.
// USB-tunneled serial).
func (s *Session) WithHostBaud(baud uint32) *Session {
	s.hostBaud = baud
	return s
}

// Handshake invokes the stack's handshake variant.
func (s *Session) Handshake() error {
	switch s.kind {
	case kindSerial:
		tr := cmp.NewTransport(s.padpLink)
		_, err := cmp.Handshake(tr, s.hostBaud)
		return err
	case kindNetwork:
		return netframe.Handshake(s.raw)
	default:
		return codec.ProtocolError("session: unknown transport kind")
	}
}

// Start executes ReadSysInfo and ReadUserInfo, caching the results
//.
func (s *Session) Start() error {
	sysInfo, err := s.Engine.ReadSysInfo()
	if err != nil {
		return err
	}
	s.SysInfo = sysInfo

	userInfo, err := s.Engine.ReadUserInfo()
	if err != nil {
		return err
	}
	s.UserInfo = userInfo
	return nil
}

// Run executes fn with the session's DLP engine, the caller's own sync
// logic.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context, e *dlp.Engine) error) error {
	return fn(ctx, s.Engine)
}

// End appends a sync log entry then calls EndOfSync.
func (s *Session) End(logEntry string, status dlp.Status) error {
	if err := s.Engine.AddSyncLogEntry(logEntry); err != nil {
		return err
	}
	return s.Engine.EndOfSync(status)
}
