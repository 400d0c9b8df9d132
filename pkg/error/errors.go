package errors

import (
	"errors"
	"fmt"
)

var (
	// Token errors
	ErrEmptyToken        = errors.New("empty token")
	ErrMalformedToken    = errors.New("malformed token")
	ErrUnknownRole       = errors.New("unknown token role")
	ErrInvalidServerAddr = errors.New("invalid server address in token")

	// Transport errors
	ErrBindingUDP    = errors.New("failed to bind UDP")
	ErrIntroduce     = errors.New("failed to send introduction")
	ErrTransportDown = errors.New("transport closed")

	// Client errors
	ErrPubAddrRetrieve = errors.New("failed to get public address")
	ErrAnnounce        = errors.New("failed to announce to relay")
	ErrWaitForPeer     = errors.New("failed to wait for remote peer")
	ErrPunchingNAT     = errors.New("failed to perform UDP hole punching")
)

func Wrap(step error, err error) error {
	return fmt.Errorf("%w: %w", step, err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
