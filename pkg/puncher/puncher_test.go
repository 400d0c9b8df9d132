package puncher_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/puncher"
	"github.com/yago-123/punch-relay/pkg/util"
	"golang.org/x/sync/errgroup"
)

func listen(t *testing.T) (*net.UDPConn, netip.AddrPort) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, util.AddrPortFromUDP(conn.LocalAddr().(*net.UDPAddr))
}

func TestPunchBothSides(t *testing.T) {
	t.Parallel()

	connA, addrA := listen(t)
	connB, addrB := listen(t)
	p := puncher.NewPuncher(puncher.WithPuncherInterval(10*time.Millisecond), puncher.WithTimeout(5*time.Second))

	var gotA, gotB netip.AddrPort
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		gotA, err = p.Punch(ctx, connA, peer.Pair{Internal: addrB, External: addrB}, "shared1")
		return err
	})
	g.Go(func() error {
		var err error
		gotB, err = p.Punch(ctx, connB, peer.Pair{Internal: addrA, External: addrA}, "shared1")
		return err
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, addrB, gotA)
	assert.Equal(t, addrA, gotB)
}

func TestPunchIgnoresOtherTokens(t *testing.T) {
	t.Parallel()

	connA, addrA := listen(t)
	connB, addrB := listen(t)
	p := puncher.NewPuncher(puncher.WithPuncherInterval(10*time.Millisecond), puncher.WithTimeout(200*time.Millisecond))

	// B probes A with a different token, which must not count
	go func() {
		_, _ = p.Punch(context.Background(), connB, peer.Pair{External: addrA}, "other")
	}()

	_, err := p.Punch(context.Background(), connA, peer.Pair{External: addrB}, "shared1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPunchValidatesArguments(t *testing.T) {
	t.Parallel()

	p := puncher.NewPuncher()
	_, err := p.Punch(context.Background(), nil, peer.Pair{External: netip.MustParseAddrPort("127.0.0.1:9")}, "t")
	assert.Error(t, err)

	conn, _ := listen(t)
	_, err = p.Punch(context.Background(), conn, peer.Pair{}, "t")
	assert.Error(t, err)
}
