// Package wire implements the datagram framing spoken between peers and the
// relay. Every frame is magic (2 bytes) | kind (1 byte) | body.
package wire

import (
	"encoding/binary"
	"errors"
	"net/netip"
)

// Kind identifies the frame type.
type Kind byte

const (
	// KindIntroductionRequest is sent by a peer announcing its internal
	// endpoint and token. The relay fills in the external endpoint itself.
	KindIntroductionRequest Kind = 0x01
	// KindIntroduction is sent by the relay to each matched peer and
	// describes the other side.
	KindIntroduction Kind = 0x02
	// KindUnconnected carries an opaque payload, used for keepalives.
	KindUnconnected Kind = 0x03
	// KindPunch is exchanged directly between peers while hole punching.
	KindPunch Kind = 0x04
)

const (
	magic0 = 'P'
	magic1 = 'R'

	headerSize = 3

	familyIPv4 = 4
	familyIPv6 = 6

	// MaxTokenLength bounds tokens carried in any frame.
	MaxTokenLength = 256
	// MaxPayloadLength bounds unconnected payloads.
	MaxPayloadLength = 1024
)

var (
	// ErrNotOurPacket indicates the datagram does not carry the frame magic.
	ErrNotOurPacket = errors.New("wire: not a relay packet")
	// ErrMalformedPacket indicates a truncated or otherwise invalid frame.
	ErrMalformedPacket = errors.New("wire: malformed packet")
	// ErrUnknownKind indicates a well-formed header with an unknown kind.
	ErrUnknownKind = errors.New("wire: unknown packet kind")
	// ErrTokenTooLong is returned when encoding a token over MaxTokenLength.
	ErrTokenTooLong = errors.New("wire: token too long")
	// ErrPayloadTooLong is returned when encoding a payload over MaxPayloadLength.
	ErrPayloadTooLong = errors.New("wire: payload too long")
	// ErrInvalidEndpoint is returned when encoding an invalid endpoint.
	ErrInvalidEndpoint = errors.New("wire: invalid endpoint")
)

func (k Kind) String() string {
	switch k {
	case KindIntroductionRequest:
		return "introduction_request"
	case KindIntroduction:
		return "introduction"
	case KindUnconnected:
		return "unconnected"
	case KindPunch:
		return "punch"
	default:
		return "unknown"
	}
}

// Packet is a decoded frame. Which fields are set depends on Kind:
//
//	IntroductionRequest: Internal, Token
//	Introduction:        Internal, External, Token
//	Unconnected:         Payload
//	Punch:               Token
type Packet struct {
	Kind     Kind
	Internal netip.AddrPort
	External netip.AddrPort
	Token    string
	Payload  []byte
}

// IsPacket reports whether b starts with the frame magic.
func IsPacket(b []byte) bool {
	return len(b) >= headerSize && b[0] == magic0 && b[1] == magic1
}

// Encode serializes p.
func Encode(p *Packet) ([]byte, error) {
	b := make([]byte, 0, 64)
	b = append(b, magic0, magic1, byte(p.Kind))

	var err error
	switch p.Kind {
	case KindIntroductionRequest:
		if b, err = appendEndpoint(b, p.Internal); err != nil {
			return nil, err
		}
		return appendToken(b, p.Token)
	case KindIntroduction:
		if b, err = appendEndpoint(b, p.Internal); err != nil {
			return nil, err
		}
		if b, err = appendEndpoint(b, p.External); err != nil {
			return nil, err
		}
		return appendToken(b, p.Token)
	case KindUnconnected:
		if len(p.Payload) > MaxPayloadLength {
			return nil, ErrPayloadTooLong
		}
		return appendBytes(b, p.Payload), nil
	case KindPunch:
		return appendToken(b, p.Token)
	default:
		return nil, ErrUnknownKind
	}
}

// Decode parses a frame. Trailing bytes after a complete body are rejected.
func Decode(b []byte) (*Packet, error) {
	if !IsPacket(b) {
		return nil, ErrNotOurPacket
	}

	r := reader{buf: b[headerSize:]}
	p := &Packet{Kind: Kind(b[2])}

	switch p.Kind {
	case KindIntroductionRequest:
		p.Internal = r.endpoint()
		p.Token = r.token()
	case KindIntroduction:
		p.Internal = r.endpoint()
		p.External = r.endpoint()
		p.Token = r.token()
	case KindUnconnected:
		p.Payload = r.bytes(MaxPayloadLength)
	case KindPunch:
		p.Token = r.token()
	default:
		return nil, ErrUnknownKind
	}

	if r.err != nil || len(r.buf) != 0 {
		return nil, ErrMalformedPacket
	}
	return p, nil
}

func appendEndpoint(b []byte, ap netip.AddrPort) ([]byte, error) {
	if !ap.IsValid() {
		return nil, ErrInvalidEndpoint
	}
	addr := ap.Addr().Unmap()
	if addr.Is4() {
		a := addr.As4()
		b = append(b, familyIPv4)
		b = append(b, a[:]...)
	} else {
		a := addr.As16()
		b = append(b, familyIPv6)
		b = append(b, a[:]...)
	}
	return binary.BigEndian.AppendUint16(b, ap.Port()), nil
}

func appendToken(b []byte, token string) ([]byte, error) {
	if len(token) > MaxTokenLength {
		return nil, ErrTokenTooLong
	}
	return appendBytes(b, []byte(token)), nil
}

func appendBytes(b []byte, v []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(v)))
	return append(b, v...)
}

// reader consumes a frame body, latching the first error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = ErrMalformedPacket
		return nil
	}
	v := r.buf[:n]
	r.buf = r.buf[n:]
	return v
}

func (r *reader) endpoint() netip.AddrPort {
	fam := r.take(1)
	if fam == nil {
		return netip.AddrPort{}
	}

	var addr netip.Addr
	switch fam[0] {
	case familyIPv4:
		raw := r.take(4)
		if raw == nil {
			return netip.AddrPort{}
		}
		addr = netip.AddrFrom4([4]byte(raw))
	case familyIPv6:
		raw := r.take(16)
		if raw == nil {
			return netip.AddrPort{}
		}
		addr = netip.AddrFrom16([16]byte(raw)).Unmap()
	default:
		r.err = ErrMalformedPacket
		return netip.AddrPort{}
	}

	port := r.take(2)
	if port == nil {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(addr, binary.BigEndian.Uint16(port))
}

func (r *reader) bytes(limit int) []byte {
	l := r.take(2)
	if l == nil {
		return nil
	}
	n := int(binary.BigEndian.Uint16(l))
	if n > limit {
		r.err = ErrMalformedPacket
		return nil
	}
	v := r.take(n)
	if v == nil {
		return nil
	}
	return append([]byte(nil), v...)
}

func (r *reader) token() string {
	return string(r.bytes(MaxTokenLength))
}
