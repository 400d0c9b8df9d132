package puncher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/go-logr/logr"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/util"
	"github.com/yago-123/punch-relay/pkg/wire"
)

const maxPacketSize = 1500

type Puncher interface {
	// Punch opens a NAT mapping towards remote and returns the endpoint the
	// remote peer answered from.
	Punch(ctx context.Context, conn *net.UDPConn, remote peer.Pair, token string) (netip.AddrPort, error)
}

type puncher struct {
	interval time.Duration
	timeout  time.Duration
	logger   logr.Logger
}

func NewPuncher(opts ...Option) Puncher {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	return &puncher{
		interval: cfg.puncherInterval,
		timeout:  cfg.timeout,
		logger:   cfg.logger,
	}
}

func (p *puncher) Punch(ctx context.Context, conn *net.UDPConn, remote peer.Pair, token string) (netip.AddrPort, error) {
	if conn == nil {
		return netip.AddrPort{}, fmt.Errorf("conn required for punching")
	}
	if !remote.External.IsValid() {
		return netip.AddrPort{}, fmt.Errorf("remote external endpoint required for punching")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	probe, err := wire.Encode(&wire.Packet{Kind: wire.KindPunch, Token: token})
	if err != nil {
		return netip.AddrPort{}, err
	}

	// peers behind the same NAT reach each other on the internal endpoint
	candidates := []netip.AddrPort{remote.External}
	if remote.Internal.IsValid() && remote.Internal != remote.External {
		candidates = append(candidates, remote.Internal)
	}

	p.logger.Info("Punching towards remote peer",
		"internal", util.RedactAddr(remote.Internal),
		"external", util.RedactAddr(remote.External))

	sendCtx, stopSending := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.sendProbes(sendCtx, conn, probe, candidates)
	}()
	defer func() {
		stopSending()
		wg.Wait()
		_ = conn.SetReadDeadline(time.Time{})
	}()

	from, err := p.awaitProbe(ctx, conn, token)
	if err != nil {
		return netip.AddrPort{}, err
	}

	// the remote may not have seen our probes yet
	if _, errAck := conn.WriteToUDPAddrPort(probe, from); errAck != nil {
		p.logger.Error(errAck, "Failed acknowledging punch", "endpoint", util.RedactAddr(from))
	}

	p.logger.Info("Punched through NAT", "endpoint", util.RedactAddr(from))
	return from, nil
}

func (p *puncher) sendProbes(ctx context.Context, conn *net.UDPConn, probe []byte, candidates []netip.AddrPort) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		for _, addr := range candidates {
			_, errConn := conn.WriteToUDPAddrPort(probe, addr)
			if errors.Is(errConn, net.ErrClosed) {
				return
			}
			if errConn != nil {
				p.logger.V(1).Info("Punch probe failed", "endpoint", util.RedactAddr(addr), "err", errConn.Error())
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// awaitProbe reads until a punch frame carrying token arrives.
func (p *puncher) awaitProbe(ctx context.Context, conn *net.UDPConn, token string) (netip.AddrPort, error) {
	buf := make([]byte, maxPacketSize)

	for {
		if err := ctx.Err(); err != nil {
			return netip.AddrPort{}, err
		}

		if err := conn.SetReadDeadline(time.Now().Add(p.interval)); err != nil {
			return netip.AddrPort{}, err
		}

		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return netip.AddrPort{}, err
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil || pkt.Kind != wire.KindPunch || pkt.Token != token {
			continue
		}
		return util.Normalize(from), nil
	}
}
