package wire_test

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yago-123/punch-relay/pkg/wire"
)

func TestEncodeDecodeIntroduction(t *testing.T) {
	t.Parallel()

	in := &wire.Packet{
		Kind:     wire.KindIntroduction,
		Internal: netip.MustParseAddrPort("10.0.0.2:4230"),
		External: netip.MustParseAddrPort("[2001:db8::5]:4240"),
		Token:    "server_abc123",
	}

	raw, err := wire.Encode(in)
	require.NoError(t, err)
	assert.True(t, wire.IsPacket(raw))

	out, err := wire.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeUnmapsEndpoints(t *testing.T) {
	t.Parallel()

	raw, err := wire.Encode(&wire.Packet{
		Kind:     wire.KindIntroductionRequest,
		Internal: netip.MustParseAddrPort("[::ffff:10.0.0.2]:4230"),
		Token:    "t",
	})
	require.NoError(t, err)

	out, err := wire.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.2:4230"), out.Internal)
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	valid, err := wire.Encode(&wire.Packet{Kind: wire.KindPunch, Token: "abc"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{name: "empty", in: nil, err: wire.ErrNotOurPacket},
		{name: "stun", in: []byte{0x00, 0x01, 0x00, 0x00}, err: wire.ErrNotOurPacket},
		{name: "unknown kind", in: []byte{'P', 'R', 0x7f}, err: wire.ErrUnknownKind},
		{name: "truncated", in: valid[:len(valid)-1], err: wire.ErrMalformedPacket},
		{name: "trailing", in: append(append([]byte{}, valid...), 0x00), err: wire.ErrMalformedPacket},
		{name: "bad family", in: []byte{'P', 'R', 0x01, 0x09, 0, 0, 0, 0, 0, 0, 0, 0}, err: wire.ErrMalformedPacket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errDecode := wire.Decode(tt.in)
			assert.ErrorIs(t, errDecode, tt.err)
		})
	}
}

func TestEncodeLimits(t *testing.T) {
	t.Parallel()

	_, err := wire.Encode(&wire.Packet{Kind: wire.KindPunch, Token: strings.Repeat("a", wire.MaxTokenLength+1)})
	assert.ErrorIs(t, err, wire.ErrTokenTooLong)

	_, err = wire.Encode(&wire.Packet{Kind: wire.KindUnconnected, Payload: make([]byte, wire.MaxPayloadLength+1)})
	assert.ErrorIs(t, err, wire.ErrPayloadTooLong)

	_, err = wire.Encode(&wire.Packet{Kind: wire.KindIntroductionRequest, Token: "t"})
	assert.ErrorIs(t, err, wire.ErrInvalidEndpoint)
}

func TestUnconnectedPayloadIsCopied(t *testing.T) {
	t.Parallel()

	raw, err := wire.Encode(&wire.Packet{Kind: wire.KindUnconnected, Payload: []byte("203.0.113.5")})
	require.NoError(t, err)

	out, err := wire.Decode(raw)
	require.NoError(t, err)
	raw[len(raw)-1] = 'X'
	assert.Equal(t, "203.0.113.5", string(out.Payload))
}
