package client

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/go-logr/logr"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/rendez/coordinator"
	"github.com/yago-123/punch-relay/pkg/util"
	"github.com/yago-123/punch-relay/pkg/wire"
)

const maxPacketSize = 1500

type Rendezvous interface {
	RequestIntroduction(token string) error
	WaitForIntroduction(ctx context.Context, token string) (*Introduction, error)
	PublicAddr(ctx context.Context) (netip.AddrPort, error)
}

// Introduction is what the relay told us about the other peer.
type Introduction struct {
	Remote peer.Pair
	Token  string
}

// Client talks to the relay over a single UDP socket. The same socket is
// later used for hole punching so the NAT mapping the relay observed stays
// valid.
type Client struct {
	conn     *net.UDPConn
	relay    netip.AddrPort
	internal netip.AddrPort

	cfg    *config
	logger logr.Logger
}

// Dial binds a local socket and resolves the relay address. No packet is sent.
func Dial(relayAddr string, opts ...Option) (*Client, error) {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	relayUDP, err := net.ResolveUDPAddr(util.UDPProtocol, relayAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve relay address: %w", err)
	}
	relay := util.AddrPortFromUDP(relayUDP)

	localUDP, err := net.ResolveUDPAddr(util.UDPProtocol, cfg.localAddr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrBindingUDP, err)
	}

	conn, err := net.ListenUDP(util.UDPProtocol, localUDP)
	if err != nil {
		return nil, errors.Wrap(errors.ErrBindingUDP, err)
	}

	c := &Client{
		conn:   conn,
		relay:  relay,
		cfg:    cfg,
		logger: cfg.logger,
	}

	c.internal = cfg.internalAddr
	if !c.internal.IsValid() {
		c.internal = c.deriveInternalAddr()
	}

	return c, nil
}

// deriveInternalAddr returns the bound address, replacing an unspecified IP
// with the one the kernel would route to the relay from.
func (c *Client) deriveInternalAddr() netip.AddrPort {
	local := c.LocalAddr()
	if !local.Addr().IsUnspecified() {
		return local
	}

	probe, err := net.DialUDP(util.UDPProtocol, nil, util.UDPFromAddrPort(c.relay))
	if err != nil {
		return local
	}
	defer probe.Close()

	routed, ok := probe.LocalAddr().(*net.UDPAddr)
	if !ok {
		return local
	}
	return netip.AddrPortFrom(util.AddrPortFromUDP(routed).Addr(), local.Port())
}

func (c *Client) Conn() *net.UDPConn {
	return c.conn
}

func (c *Client) LocalAddr() netip.AddrPort {
	udpAddr, ok := c.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return util.AddrPortFromUDP(udpAddr)
}

// InternalAddr is the endpoint announced to the relay as our internal address.
func (c *Client) InternalAddr() netip.AddrPort {
	return c.internal
}

func (c *Client) Relay() netip.AddrPort {
	return c.relay
}

// RequestIntroduction announces token together with our internal endpoint.
func (c *Client) RequestIntroduction(token string) error {
	return c.send(&wire.Packet{
		Kind:     wire.KindIntroductionRequest,
		Internal: c.internal,
		Token:    token,
	})
}

// SendKeepalive refreshes a server registration without re-announcing.
func (c *Client) SendKeepalive(payload []byte) error {
	return c.send(&wire.Packet{Kind: wire.KindUnconnected, Payload: payload})
}

// RunKeepalive sends a keepalive every interval until ctx is done.
func (c *Client) RunKeepalive(ctx context.Context, payload []byte) error {
	ticker := time.NewTicker(c.cfg.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.SendKeepalive(payload); err != nil {
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				c.logger.Error(err, "Failed sending keepalive")
			}
		}
	}
}

// WaitForIntroduction announces token every announce interval until the relay
// introduces us to a peer. A server token accepts any introduction, since the
// relay tags those with the client's token; other tokens must match exactly.
func (c *Client) WaitForIntroduction(ctx context.Context, token string) (*Introduction, error) {
	acceptAny := false
	if role, _, err := coordinator.ParseRoleToken(token); err == nil && role == coordinator.RoleServer {
		acceptAny = true
	}

	defer func() {
		_ = c.conn.SetReadDeadline(time.Time{})
	}()

	buf := make([]byte, maxPacketSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.RequestIntroduction(token); err != nil {
			return nil, errors.Wrap(errors.ErrAnnounce, err)
		}

		deadline := time.Now().Add(c.cfg.announceInterval)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}

		intro, err := c.readIntroduction(buf, token, acceptAny)
		if err != nil {
			return nil, err
		}
		if intro != nil {
			c.logger.Info("Introduced to peer",
				"internal", util.RedactAddr(intro.Remote.Internal),
				"external", util.RedactAddr(intro.Remote.External))
			return intro, nil
		}
	}
}

// readIntroduction reads until the deadline. It returns nil, nil on timeout.
func (c *Client) readIntroduction(buf []byte, token string, acceptAny bool) (*Introduction, error) {
	for {
		n, from, err := c.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, nil
			}
			return nil, err
		}

		if util.Normalize(from) != c.relay {
			continue
		}

		p, err := wire.Decode(buf[:n])
		if err != nil || p.Kind != wire.KindIntroduction {
			continue
		}
		if !acceptAny && p.Token != token {
			continue
		}

		return &Introduction{
			Remote: peer.Pair{Internal: p.Internal, External: p.External},
			Token:  p.Token,
		}, nil
	}
}

// PublicAddr asks the relay which endpoint our datagrams arrive from.
func (c *Client) PublicAddr(ctx context.Context) (netip.AddrPort, error) {
	addr, err := util.QueryMappedAddress(ctx, c.conn, c.relay)
	if err != nil {
		return netip.AddrPort{}, errors.Wrap(errors.ErrPubAddrRetrieve, err)
	}
	return addr, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(p *wire.Packet) error {
	raw, err := wire.Encode(p)
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDPAddrPort(raw, c.relay)
	return err
}
