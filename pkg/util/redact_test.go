package util_test

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yago-123/punch-relay/pkg/util"
)

func TestRedactAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ipv4", in: "203.0.113.5:4240", want: "203.0.x.x:4240"},
		{name: "ipv4 low port", in: "10.0.0.2:1", want: "10.0.x.x:1"},
		{name: "ipv4 mapped", in: "[::ffff:198.51.100.9]:51000", want: "198.51.x.x:51000"},
		{name: "ipv6 untouched", in: "[2001:db8::1]:4240", want: "[2001:db8::1]:4240"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, util.RedactAddr(netip.MustParseAddrPort(tt.in)))
		})
	}
}

func TestRedactIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "203.0.x.x", util.RedactIP(netip.MustParseAddr("203.0.113.5")))
	assert.Equal(t, "2001:db8::1", util.RedactIP(netip.MustParseAddr("2001:db8::1")))
}

func TestAddrPortFromUDPUnmaps(t *testing.T) {
	t.Parallel()

	udp := &net.UDPAddr{IP: net.ParseIP("::ffff:203.0.113.5"), Port: 4240}
	got := util.AddrPortFromUDP(udp)

	assert.Equal(t, netip.MustParseAddrPort("203.0.113.5:4240"), got)
	assert.Equal(t, netip.AddrPort{}, util.AddrPortFromUDP(nil))
}
