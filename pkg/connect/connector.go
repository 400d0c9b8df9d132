package connect

import (
	"context"
	"net"
	"net/netip"

	"github.com/go-logr/logr"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/puncher"
	"github.com/yago-123/punch-relay/pkg/rendez/client"
	"github.com/yago-123/punch-relay/pkg/util"
)

// Conn is a punched UDP path to a remote peer.
type Conn struct {
	*net.UDPConn
	Remote     netip.AddrPort
	RemotePair peer.Pair
	Public     netip.AddrPort
}

type Connector struct {
	puncher puncher.Puncher
	cfg     *config
	logger  logr.Logger
}

func NewConnector(puncher puncher.Puncher, opts ...Option) *Connector {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	return &Connector{
		puncher: puncher,
		cfg:     cfg,
		logger:  cfg.logger,
	}
}

// Connect handles the connection process between two peers. From announcing to
// the relay until the NAT has been punched. The returned socket is the one the
// relay observed, so the mapping it handed out stays valid.
func (c *Connector) Connect(ctx context.Context, token string) (*Conn, error) {
	rendezClient, err := client.Dial(c.cfg.relayAddr,
		client.WithLocalAddr(c.cfg.localAddr),
		client.WithAnnounceInterval(c.cfg.waitInterval),
		client.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx, rendezClient, token)
	if err != nil {
		_ = rendezClient.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Connector) connect(ctx context.Context, rendezClient *client.Client, token string) (*Conn, error) {
	// Discover own public address through the relay
	publicAddr, err := rendezClient.PublicAddr(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Discovered public endpoint", "public", util.RedactAddr(publicAddr), "internal", util.RedactAddr(rendezClient.InternalAddr()))

	// Wait for the relay to introduce the remote peer
	intro, err := rendezClient.WaitForIntroduction(ctx, token)
	if err != nil {
		return nil, errors.Wrap(errors.ErrWaitForPeer, err)
	}

	// both sides were handed the same token by the relay
	remote, err := c.puncher.Punch(ctx, rendezClient.Conn(), intro.Remote, intro.Token)
	if err != nil {
		return nil, errors.Wrap(errors.ErrPunchingNAT, err)
	}

	c.logger.Info("Connected to remote peer", "endpoint", util.RedactAddr(remote))

	return &Conn{
		UDPConn:    rendezClient.Conn(),
		Remote:     remote,
		RemotePair: intro.Remote,
		Public:     publicAddr,
	}, nil
}
