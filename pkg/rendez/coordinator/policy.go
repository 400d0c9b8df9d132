package coordinator

import (
	"fmt"
	"strings"
)

// Policy selects how announcements are matched.
type Policy int

const (
	// Asymmetric registers servers under their external IP and lets clients
	// look them up by that IP.
	Asymmetric Policy = iota
	// Symmetric matches two peers presenting the same shared token.
	Symmetric
)

const (
	DefaultAsymmetricPort = 4240
	DefaultSymmetricPort  = 8080
)

func (p Policy) String() string {
	switch p {
	case Asymmetric:
		return "asymmetric"
	case Symmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// DefaultPort returns the UDP port the relay listens on by default for p.
func (p Policy) DefaultPort() int {
	if p == Symmetric {
		return DefaultSymmetricPort
	}
	return DefaultAsymmetricPort
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asymmetric", "asym":
		return Asymmetric, nil
	case "symmetric", "sym":
		return Symmetric, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want asymmetric or symmetric)", s)
	}
}
