package transport

import (
	"net/netip"

	"github.com/pion/stun"
	"github.com/yago-123/punch-relay/pkg/util"
)

// handleSTUN answers binding requests with the sender's mapped address so
// peers can discover their external endpoint from the relay itself. Other STUN
// traffic is ignored.
func (t *Transport) handleSTUN(b []byte, remote netip.AddrPort) {
	req := &stun.Message{Raw: append([]byte(nil), b...)}
	if err := req.Decode(); err != nil {
		return
	}
	if req.Type.Method != stun.MethodBinding || req.Type.Class != stun.ClassRequest {
		return
	}

	res, err := stun.Build(
		stun.NewTransactionIDSetter(req.TransactionID),
		stun.BindingSuccess,
		&stun.XORMappedAddress{IP: remote.Addr().AsSlice(), Port: int(remote.Port())},
		stun.Fingerprint,
	)
	if err != nil {
		t.logger.Error(err, "Failed building STUN response")
		return
	}

	if _, err = t.conn.WriteToUDPAddrPort(res.Raw, remote); err != nil {
		t.logger.Error(err, "Failed sending STUN response", "endpoint", util.RedactAddr(remote))
		return
	}
	t.metrics.STUNBinding()
}
