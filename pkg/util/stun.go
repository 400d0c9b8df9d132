package util

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/pion/stun"
)

const (
	DefaultSTUNTimeout = 3 * time.Second
	maxSTUNPacketSize  = 1500
)

// QueryMappedAddress sends a STUN binding request through conn and returns the
// XOR-MAPPED-ADDRESS of the response, i.e. the public endpoint conn is seen
// from. Datagrams that are not the matching STUN response are discarded, so
// callers must not expect other traffic on conn while the query runs.
func QueryMappedAddress(ctx context.Context, conn *net.UDPConn, server netip.AddrPort) (netip.AddrPort, error) {
	req, err := stun.Build(stun.TransactionID, stun.BindingRequest, stun.Fingerprint)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("error building STUN request: %w", err)
	}

	if _, err = conn.WriteToUDP(req.Raw, UDPFromAddrPort(server)); err != nil {
		return netip.AddrPort{}, fmt.Errorf("error sending STUN request to %s: %w", RedactAddr(server), err)
	}

	deadline := time.Now().Add(DefaultSTUNTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err = conn.SetReadDeadline(deadline); err != nil {
		return netip.AddrPort{}, fmt.Errorf("error setting read deadline: %w", err)
	}
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
	}()

	buf := make([]byte, maxSTUNPacketSize)
	for {
		if ctx.Err() != nil {
			return netip.AddrPort{}, ctx.Err()
		}

		n, _, errRead := conn.ReadFromUDP(buf)
		if errRead != nil {
			return netip.AddrPort{}, fmt.Errorf("STUN request to %s failed: %w", RedactAddr(server), errRead)
		}
		if !stun.IsMessage(buf[:n]) {
			continue
		}

		res := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
		if errDecode := res.Decode(); errDecode != nil {
			continue
		}
		if res.TransactionID != req.TransactionID {
			continue
		}
		if res.Type != stun.BindingSuccess {
			return netip.AddrPort{}, fmt.Errorf("unexpected STUN response type %s", res.Type)
		}

		var xorAddr stun.XORMappedAddress
		if errGet := xorAddr.GetFrom(res); errGet != nil {
			return netip.AddrPort{}, fmt.Errorf("failed to get XOR-MAPPED-ADDRESS: %w", errGet)
		}

		ip, ok := netip.AddrFromSlice(xorAddr.IP)
		if !ok {
			return netip.AddrPort{}, fmt.Errorf("invalid XOR-MAPPED-ADDRESS %v", xorAddr.IP)
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(xorAddr.Port)), nil
	}
}
