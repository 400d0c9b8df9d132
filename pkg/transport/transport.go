// Package transport owns the relay's UDP socket. A reader goroutine decodes
// datagrams into a bounded queue; Poll drains that queue on the caller's
// goroutine so handlers never run concurrently.
package transport

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pion/stun"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/metrics"
	"github.com/yago-123/punch-relay/pkg/util"
	"github.com/yago-123/punch-relay/pkg/wire"
)

// Handler receives decoded relay traffic. Poll invokes it synchronously.
type Handler interface {
	HandleIntroductionRequest(local, remote netip.AddrPort, token string)
	HandleUnconnectedMessage(remote netip.AddrPort, payload []byte)
	HandleIntroductionSuccess(remote netip.AddrPort, token string)
}

type event struct {
	packet *wire.Packet
	remote netip.AddrPort
}

type Transport struct {
	conn   *net.UDPConn
	events chan event

	cfg     *config
	metrics *metrics.Metrics
	logger  logr.Logger

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Listen binds addr (e.g. ":4240") and starts reading from it.
func Listen(addr string, opts ...Option) (*Transport, error) {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	udpAddr, err := net.ResolveUDPAddr(util.UDPProtocol, addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrBindingUDP, err)
	}

	conn, err := net.ListenUDP(util.UDPProtocol, udpAddr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrBindingUDP, err)
	}

	t := &Transport{
		conn:    conn,
		events:  make(chan event, cfg.queueSize),
		cfg:     cfg,
		metrics: cfg.metrics,
		logger:  cfg.logger,
		closeCh: make(chan struct{}),
	}

	t.wg.Add(1)
	go t.readLoop()

	t.logger.Info("Listening for peers", "addr", conn.LocalAddr().String())
	return t, nil
}

// LocalAddr returns the bound socket address.
func (t *Transport) LocalAddr() netip.AddrPort {
	udpAddr, ok := t.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return util.AddrPortFromUDP(udpAddr)
}

// Poll hands every queued event to h and returns how many were handled. It
// never blocks waiting for traffic.
func (t *Transport) Poll(h Handler) int {
	handled := 0
	for {
		select {
		case ev := <-t.events:
			t.dispatch(h, ev)
			handled++
		default:
			return handled
		}
	}
}

func (t *Transport) dispatch(h Handler, ev event) {
	p := ev.packet
	switch p.Kind {
	case wire.KindIntroductionRequest:
		h.HandleIntroductionRequest(p.Internal, ev.remote, p.Token)
	case wire.KindUnconnected:
		h.HandleUnconnectedMessage(ev.remote, p.Payload)
	case wire.KindPunch:
		h.HandleIntroductionSuccess(ev.remote, p.Token)
	}
}

// Close stops the reader and releases the socket. It is safe to call more
// than once.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closeCh)
		err = t.conn.Close()
	})
	t.wg.Wait()
	return err
}

func (t *Transport) closed() bool {
	select {
	case <-t.closeCh:
		return true
	default:
		return false
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()

	// one spare byte detects oversize datagrams
	buf := make([]byte, t.cfg.maxPacketSize+1)

	for {
		if t.closed() {
			return
		}

		if t.cfg.readTimeout > 0 {
			_ = t.conn.SetReadDeadline(time.Now().Add(t.cfg.readTimeout))
		}

		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if t.closed() || errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Error(err, "Failed reading from socket")
			continue
		}

		if n > t.cfg.maxPacketSize {
			t.metrics.Drop(metrics.DropReasonOversize)
			continue
		}

		t.handleDatagram(buf[:n], util.AddrPortFromUDP(addr))
	}
}

func (t *Transport) handleDatagram(b []byte, remote netip.AddrPort) {
	if stun.IsMessage(b) {
		t.handleSTUN(b, remote)
		return
	}

	p, err := wire.Decode(b)
	if err != nil {
		t.metrics.Drop(metrics.DropReasonMalformedPkt)
		t.logger.V(1).Info("Dropped datagram", "reason", err.Error(), "endpoint", util.RedactAddr(remote))
		return
	}
	t.metrics.Packet(p.Kind.String())

	if p.Kind == wire.KindIntroduction {
		// only the relay sends these
		return
	}

	select {
	case t.events <- event{packet: p, remote: remote}:
	default:
		t.metrics.Drop(metrics.DropReasonQueueFull)
		t.logger.V(1).Info("Event queue full, dropping datagram", "endpoint", util.RedactAddr(remote))
	}
}
