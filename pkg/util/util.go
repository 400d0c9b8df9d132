package util

import (
	"net"
	"net/netip"
)

const (
	UDPProtocol = "udp"
)

// AddrPortFromUDP converts a UDP address into a comparable netip.AddrPort.
// IPv4-mapped IPv6 addresses (as reported by dual-stack sockets) are unmapped
// so that the same peer always produces the same key.
func AddrPortFromUDP(addr *net.UDPAddr) netip.AddrPort {
	if addr == nil {
		return netip.AddrPort{}
	}
	ap := addr.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// UDPFromAddrPort is the inverse of AddrPortFromUDP.
func UDPFromAddrPort(ap netip.AddrPort) *net.UDPAddr {
	return net.UDPAddrFromAddrPort(ap)
}

// Normalize unmaps IPv4-mapped addresses, leaving everything else untouched.
func Normalize(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
