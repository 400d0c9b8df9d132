package peer

import "net/netip"

// Pair is the address pair a peer announces to the relay: the address it bound
// behind its NAT and the address the relay observed it from.
type Pair struct {
	Internal netip.AddrPort
	External netip.AddrPort
}

// Equal reports whether both endpoints of p and o match exactly.
func (p Pair) Equal(o Pair) bool {
	return p.Internal == o.Internal && p.External == o.External
}

// Server is a registration made under the asymmetric policy. It is keyed by
// the external IP in the registry, so Token may change between announcements.
type Server struct {
	Pair
	Token string
}
