// Package coordinator decides, for every announcement reaching the relay,
// whether to store it, refresh it or introduce two peers to each other.
package coordinator

import (
	"net/netip"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/metrics"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/rendez/store"
	"github.com/yago-123/punch-relay/pkg/util"
)

// Introducer tells two peers about each other. The host side is the one that
// registered first (a server, or the first peer on a shared token).
type Introducer interface {
	Introduce(hostInternal, hostExternal, clientInternal, clientExternal netip.AddrPort, token string) error
}

// Coordinator implements the transport handler set. All handlers and Sweep
// must be called from a single goroutine; read-only accessors may be called
// concurrently.
type Coordinator struct {
	policy     Policy
	introducer Introducer

	servers store.Store[netip.Addr, peer.Server]
	waiting store.Store[string, peer.Pair]

	cfg     *config
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  logr.Logger
}

func New(policy Policy, introducer Introducer, opts ...Option) *Coordinator {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	return &Coordinator{
		policy:     policy,
		introducer: introducer,
		servers:    store.NewMemoryStore[netip.Addr, peer.Server](),
		waiting:    store.NewMemoryStore[string, peer.Pair](),
		cfg:        cfg,
		clock:      cfg.clock,
		metrics:    cfg.metrics,
		logger:     cfg.logger.WithValues("policy", policy.String()),
	}
}

// HandleIntroductionRequest processes an announcement. local is the endpoint
// the peer reports binding behind its NAT, remote is where the datagram came
// from.
func (c *Coordinator) HandleIntroductionRequest(local, remote netip.AddrPort, token string) {
	local, remote = util.Normalize(local), util.Normalize(remote)

	switch c.policy {
	case Asymmetric:
		c.handleAsymmetric(local, remote, token)
	case Symmetric:
		c.handleSymmetric(local, remote, token)
	}
}

// HandleUnconnectedMessage treats any unconnected datagram as a keepalive for
// the server registered at the sender's IP.
func (c *Coordinator) HandleUnconnectedMessage(remote netip.AddrPort, _ []byte) {
	if c.policy != Asymmetric {
		return
	}

	ip := remote.Addr().Unmap()
	if c.servers.Refresh(ip, c.clock.Now()) {
		c.metrics.Registered(metrics.RegistryServers, "keepalive")
		c.logger.V(1).Info("Refreshed server registration", "endpoint", util.RedactAddr(remote))
	}
}

// HandleIntroductionSuccess is a no-op. Peers talk to each other directly once
// introduced.
func (c *Coordinator) HandleIntroductionSuccess(_ netip.AddrPort, _ string) {}

func (c *Coordinator) handleAsymmetric(local, remote netip.AddrPort, token string) {
	role, payload, err := ParseRoleToken(token)
	if err != nil {
		c.drop(err, remote)
		return
	}

	switch role {
	case RoleServer:
		c.servers.Upsert(remote.Addr(), peer.Server{
			Pair:  peer.Pair{Internal: local, External: remote},
			Token: payload,
		}, c.clock.Now())
		c.metrics.Registered(metrics.RegistryServers, "upsert")
		c.metrics.SetEntries(metrics.RegistryServers, c.servers.Len())
		c.logger.Info("Registered server", "internal", util.RedactAddr(local), "external", util.RedactAddr(remote))

	case RoleClient:
		ip, errParse := netip.ParseAddr(payload)
		if errParse != nil {
			c.drop(errors.Wrap(errors.ErrInvalidServerAddr, errParse), remote)
			return
		}
		ip = ip.Unmap()

		rec, ok := c.servers.Get(ip)
		if !ok {
			c.metrics.Drop(metrics.DropReasonServerNotFound)
			c.logger.Info("No server registered for client request", "server", util.RedactIP(ip), "client", util.RedactAddr(remote))
			return
		}

		server := rec.Value
		c.introduce(server.Internal, server.External, local, remote, token)
	}
}

func (c *Coordinator) handleSymmetric(local, remote netip.AddrPort, token string) {
	if token == "" {
		c.drop(errors.ErrEmptyToken, remote)
		return
	}

	now := c.clock.Now()
	announced := peer.Pair{Internal: local, External: remote}

	rec, ok := c.waiting.Get(token)
	switch {
	case !ok:
		c.waiting.Upsert(token, announced, now)
		c.metrics.Registered(metrics.RegistryWaiting, "upsert")
		c.metrics.SetEntries(metrics.RegistryWaiting, c.waiting.Len())
		c.logger.Info("Peer waiting for counterpart", "internal", util.RedactAddr(local), "external", util.RedactAddr(remote))

	case rec.Value.Equal(announced):
		c.waiting.Refresh(token, now)
		c.metrics.Registered(metrics.RegistryWaiting, "keepalive")
		c.logger.V(1).Info("Refreshed waiting peer", "external", util.RedactAddr(remote))

	default:
		host := rec.Value
		c.introduce(host.Internal, host.External, local, remote, token)
		c.waiting.Remove(token)
		c.metrics.SetEntries(metrics.RegistryWaiting, c.waiting.Len())
	}
}

func (c *Coordinator) introduce(hostInternal, hostExternal, clientInternal, clientExternal netip.AddrPort, token string) {
	err := c.introducer.Introduce(hostInternal, hostExternal, clientInternal, clientExternal, token)
	c.metrics.Introduced(err)
	if err != nil {
		c.logger.Error(errors.Wrap(errors.ErrIntroduce, err), "Introduction failed",
			"host", util.RedactAddr(hostExternal), "client", util.RedactAddr(clientExternal))
		return
	}

	c.logger.Info("Introduced peers",
		"hostInternal", util.RedactAddr(hostInternal),
		"hostExternal", util.RedactAddr(hostExternal),
		"clientInternal", util.RedactAddr(clientInternal),
		"clientExternal", util.RedactAddr(clientExternal))
}

func (c *Coordinator) drop(err error, remote netip.AddrPort) {
	switch {
	case errors.Is(err, errors.ErrEmptyToken):
		c.metrics.Drop(metrics.DropReasonEmptyToken)
	case errors.Is(err, errors.ErrUnknownRole):
		c.metrics.Drop(metrics.DropReasonUnknownRole)
	case errors.Is(err, errors.ErrInvalidServerAddr):
		c.metrics.Drop(metrics.DropReasonInvalidAddr)
	default:
		c.metrics.Drop(metrics.DropReasonMalformedToken)
	}
	c.logger.V(1).Info("Dropped introduction request", "reason", err.Error(), "endpoint", util.RedactAddr(remote))
}

// Policy returns the matching policy fixed at construction.
func (c *Coordinator) Policy() Policy {
	return c.policy
}
