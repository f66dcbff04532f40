package dlp

import (
	"context"

	"github.com/palmsync/hotsync-nexus/pkg/netframe"
	"github.com/palmsync/hotsync-nexus/pkg/padp"
)

// PADPTransport adapts a *padp.Link (serial stack) to the DLP engine's
// synchronous Transport contract.
type PADPTransport struct{ Link *padp.Link }

func (t PADPTransport) Send(msg []byte) error {
	return t.Link.Send(context.Background(), msg)
}

func (t PADPTransport) Receive() ([]byte, error) {
	return t.Link.Receive(context.Background())
}

// NetTransport adapts the network datagram layer to the
// DLP engine's synchronous Transport contract.
type NetTransport struct {
	Reader *netframe.Reader
	Writer *netframe.Writer
}

func (t NetTransport) Send(msg []byte) error {
	_, err := t.Writer.WriteDatagram(msg)
	return err
}

func (t NetTransport) Receive() ([]byte, error) {
	d, err := t.Reader.ReadDatagram()
	if err != nil {
		return nil, err
	}
	return d.Payload, nil
}

var (
	_ Transport = PADPTransport{}
	_ Transport = NetTransport{}
)
