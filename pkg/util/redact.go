package util

import (
	"fmt"
	"net/netip"
)

const redactMask = "x.x"

// RedactAddr renders an endpoint for logs. IPv4 addresses keep their first two
// octets and the port, e.g. 203.0.113.5:4240 becomes 203.0.x.x:4240. Any other
// address family is returned unmodified.
func RedactAddr(ap netip.AddrPort) string {
	addr := ap.Addr().Unmap()
	if !addr.Is4() {
		return ap.String()
	}
	return fmt.Sprintf("%s:%d", redactIPv4(addr), ap.Port())
}

// RedactIP is the port-less variant of RedactAddr.
func RedactIP(addr netip.Addr) string {
	unmapped := addr.Unmap()
	if !unmapped.Is4() {
		return addr.String()
	}
	return redactIPv4(unmapped)
}

func redactIPv4(addr netip.Addr) string {
	b := addr.As4()
	return fmt.Sprintf("%d.%d.%s", b[0], b[1], redactMask)
}
