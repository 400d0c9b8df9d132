package transport

import (
	"net/netip"

	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/util"
	"github.com/yago-123/punch-relay/pkg/wire"
	"go.uber.org/multierr"
)

// Introduce sends each peer the other's address pair. The host learns about
// the client and the client learns about the host; both then punch towards
// each other.
func (t *Transport) Introduce(hostInternal, hostExternal, clientInternal, clientExternal netip.AddrPort, token string) error {
	if t.closed() {
		return errors.ErrTransportDown
	}

	toHost := &wire.Packet{
		Kind:     wire.KindIntroduction,
		Internal: clientInternal,
		External: clientExternal,
		Token:    token,
	}
	toClient := &wire.Packet{
		Kind:     wire.KindIntroduction,
		Internal: hostInternal,
		External: hostExternal,
		Token:    token,
	}

	return multierr.Combine(
		t.send(hostExternal, toHost),
		t.send(clientExternal, toClient),
	)
}

// Send writes an arbitrary frame to addr.
func (t *Transport) Send(addr netip.AddrPort, p *wire.Packet) error {
	return t.send(addr, p)
}

func (t *Transport) send(addr netip.AddrPort, p *wire.Packet) error {
	raw, err := wire.Encode(p)
	if err != nil {
		return err
	}

	if _, err = t.conn.WriteToUDPAddrPort(raw, addr); err != nil {
		return errors.Wrap(errors.ErrIntroduce, err)
	}

	t.logger.V(1).Info("Sent packet", "kind", p.Kind.String(), "endpoint", util.RedactAddr(addr))
	return nil
}
