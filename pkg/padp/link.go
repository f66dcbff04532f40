package padp

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
	"github.com/palmsync/hotsync-nexus/pkg/slp"
)

const (
	// DLPSocket is the well-known SLP socket id PADP uses to carry DLP
	// traffic.
	DLPSocket = 3

	maxFragmentPayload = 1024
	ackTimeout         = 2 * time.Second
	maxRetries         = 10
)

// inboundMessage tracks the single in-progress reassembly buffer
// (: "a single-slot in-progress inbound message buffer").
type inboundMessage struct {
	total    int
	received int
	buf      []byte
}

// Link is a PADP reliable-delivery session running over an SLP-framed
// stream. It owns exactly one outbound transaction in flight and one
// inbound reassembly buffer at a time (: never pipelined).
type Link struct {
	w   io.Writer
	log *logger.Logger

	mu          sync.Mutex
	nextXid     byte
	sendXid     byte
	sendPending bool
	ackCh       chan struct{}

	lastAckedXid  byte
	haveLastAcked bool
	inbound       *inboundMessage

	inbox  chan []byte
	errCh  chan error
	closed chan struct{}
}

// NewLink wires a Link on top of r (an SLP datagram source) and w (the
// raw byte stream SLP datagrams are written to).
func NewLink(r *slp.Reader, w io.Writer, log *logger.Logger) *Link {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	l := &Link{
		w:      w,
		log:    log.WithComponent("padp"),
		ackCh:  make(chan struct{}, 1),
		inbox:  make(chan []byte, 1),
		errCh:  make(chan error, 1),
		closed: make(chan struct{}),
	}
	go l.readLoop(r)
	return l
}

// nextXidLocked advances the outbound xid, wrapping 1..255 and skipping 0
//.
func (l *Link) nextXidLocked() byte {
	l.nextXid++
	if l.nextXid == 0 {
		l.nextXid = 1
	}
	return l.nextXid
}

func (l *Link) writeDatagram(xid byte, f Fragment) error {
	d := slp.Datagram{Dest: DLPSocket, Src: DLPSocket, Type: slp.TypePADP, Xid: xid, Payload: f.Encode()}
	_, err := l.w.Write(slp.Emit(d))
	if err != nil {
		return codec.WrapError(codec.KindTransport, err, "padp: writing datagram")
	}
	return nil
}

// Send delivers msg reliably: it is split into fragments of up to 1024
// bytes, each requiring an ACK before the next is sent, with up to 10
// retries per fragment on a 2-second timeout. Messages over 65535
// bytes switch every fragment to the 4-byte long form of
// lengthOrOffset, since the first fragment's total length and later
// fragments' running offsets would otherwise overflow a 16-bit field.
func (l *Link) Send(ctx context.Context, msg []byte) error {
	if len(msg) == 0 {
		msg = []byte{}
	}
	longForm := len(msg) > 0xFFFF

	offset := 0
	first := true
	for {
		end := offset + maxFragmentPayload
		if end > len(msg) {
			end = len(msg)
		}
		last := end == len(msg)
		chunk := msg[offset:end]

		lengthOrOffset := uint32(offset)
		if first {
			lengthOrOffset = uint32(len(msg))
		}

		frag := Fragment{Type: TypeData, First: first, Last: last, LongForm: longForm, LengthOrOffset: lengthOrOffset, Payload: chunk}

		if err := l.sendFragmentWithRetry(ctx, frag); err != nil {
			return err
		}

		offset = end
		first = false
		if last {
			return nil
		}
	}
}

func (l *Link) sendFragmentWithRetry(ctx context.Context, frag Fragment) error {
	l.mu.Lock()
	xid := l.nextXidLocked()
	l.sendXid = xid
	l.sendPending = true
	select {
	case <-l.ackCh:
	default:
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.sendPending = false
		l.mu.Unlock()
	}()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := l.writeDatagram(xid, frag); err != nil {
			return err
		}

		select {
		case <-l.ackCh:
			return nil
		case <-time.After(ackTimeout):
			l.log.Debug("padp ack timeout, retrying", logger.Int("xid", int(xid)), logger.Int("attempt", attempt+1))
			continue
		case err := <-l.errCh:
			return codec.WrapError(codec.KindTransport, err, "padp: transport closed while awaiting ack")
		case <-ctx.Done():
			return codec.WrapError(codec.KindTransport, ctx.Err(), "padp: send cancelled")
		case <-l.closed:
			return codec.TransportError("padp: link closed while awaiting ack")
		}
	}
	return codec.TransportError("padp: exhausted %d retries waiting for ack of xid %d", maxRetries, xid)
}

// Receive blocks until a fully reassembled inbound message is available.
func (l *Link) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-l.inbox:
		return msg, nil
	case err := <-l.errCh:
		return nil, codec.WrapError(codec.KindTransport, err, "padp: transport closed")
	case <-ctx.Done():
		return nil, codec.WrapError(codec.KindTransport, ctx.Err(), "padp: receive cancelled")
	}
}

// readLoop continuously pulls SLP datagrams and processes PADP fragments:
// dispatching ACKs to a pending sender, reassembling inbound DATA
// fragments, and immediately ACKing every DATA fragment received
//.
func (l *Link) readLoop(r *slp.Reader) {
	for {
		d, err := r.ReadDatagram()
		if err != nil {
			select {
			case l.errCh <- err:
			default:
			}
			close(l.closed)
			return
		}
		if d.Type != slp.TypePADP {
			continue
		}
		frag, err := DecodeFragment(d.Payload)
		if err != nil {
			l.log.Warn("dropping malformed padp fragment", logger.Error(err))
			continue
		}
		l.handleFragment(d.Xid, frag)
	}
}

func (l *Link) handleFragment(xid byte, frag Fragment) {
	switch frag.Type {
	case TypeTickle:
		return // silently discarded
	case TypeAbort:
		l.log.Warn("received padp abort", logger.Int("xid", int(xid)))
		return
	case TypeAck:
		l.mu.Lock()
		matches := l.sendPending && xid == l.sendXid
		l.mu.Unlock()
		if matches {
			select {
			case l.ackCh <- struct{}{}:
			default:
			}
		}
		return
	case TypeData:
		l.handleData(xid, frag)
	}
}

func (l *Link) handleData(xid byte, frag Fragment) {
	l.mu.Lock()
	// Rule: a DATA fragment whose xid matches our outstanding send xid is
	// the peer's reply whose ACK to us was lost in transit. Satisfy the
	// pending ACK wait, then fall through and process the DATA normally
	// ( point 5).
	if l.sendPending && xid == l.sendXid {
		l.mu.Unlock()
		select {
		case l.ackCh <- struct{}{}:
		default:
		}
		l.mu.Lock()
	}

	if l.haveLastAcked && xid == l.lastAckedXid {
		l.mu.Unlock()
		l.sendAck(xid, frag.LengthOrOffset)
		return
	}

	if frag.First {
		if l.inbound != nil {
			l.mu.Unlock()
			l.reportProtocolError(codec.ProtocolError("padp: first-fragment seen mid-message"))
			return
		}
		l.inbound = &inboundMessage{total: int(frag.LengthOrOffset)}
	} else {
		if l.inbound == nil {
			l.mu.Unlock()
			l.reportProtocolError(codec.ProtocolError("padp: missing first fragment"))
			return
		}
		if int(frag.LengthOrOffset) != l.inbound.received {
			l.mu.Unlock()
			l.reportProtocolError(codec.ProtocolError("padp: offset mismatch: got %d want %d", frag.LengthOrOffset, l.inbound.received))
			return
		}
	}

	msg := l.inbound
	if msg.received+len(frag.Payload) > msg.total {
		l.mu.Unlock()
		l.reportProtocolError(codec.ProtocolError("padp: payload overrun: %d bytes would exceed total %d", msg.received+len(frag.Payload), msg.total))
		return
	}
	msg.buf = append(msg.buf, frag.Payload...)
	msg.received += len(frag.Payload)

	if !frag.Last && msg.received == msg.total && msg.total != 0 {
		// last-fragment flag omitted on a would-be-final fragment is
		// tolerated only if more data is still expected; a fragment that
		// completes the message without Last set is a protocol error.
		l.mu.Unlock()
		l.reportProtocolError(codec.ProtocolError("padp: fragment completes the %d-byte message without the last-fragment flag", msg.total))
		return
	}
	if frag.Last && msg.received != msg.total {
		l.mu.Unlock()
		l.reportProtocolError(codec.ProtocolError("padp: last fragment received with %d of %d bytes", msg.received, msg.total))
		return
	}

	l.lastAckedXid = xid
	l.haveLastAcked = true
	done := frag.Last
	if done {
		l.inbound = nil
	}
	l.mu.Unlock()

	l.sendAck(xid, frag.LengthOrOffset)

	if done {
		l.inbox <- msg.buf
	}
}

func (l *Link) sendAck(xid byte, lengthOrOffset uint32) {
	ack := Fragment{Type: TypeAck, LengthOrOffset: lengthOrOffset}
	if err := l.writeDatagram(xid, ack); err != nil {
		l.log.Error("failed to send padp ack", logger.Error(err))
	}
}

func (l *Link) reportProtocolError(err error) {
	l.log.Error("padp protocol error", logger.Error(err))
	select {
	case l.errCh <- err:
	default:
	}
}
