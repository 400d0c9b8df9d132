package coordinator

import (
	"strings"

	errors "github.com/yago-123/punch-relay/pkg/error"
)

// Role is the first half of an asymmetric token.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"

	tokenSeparator = "_"
)

// ParseRoleToken splits "<role>_<payload>". Anything other than exactly two
// parts, or a role other than server/client, is rejected.
func ParseRoleToken(token string) (Role, string, error) {
	if token == "" {
		return "", "", errors.ErrEmptyToken
	}

	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 {
		return "", "", errors.ErrMalformedToken
	}

	role := Role(parts[0])
	if role != RoleServer && role != RoleClient {
		return "", "", errors.ErrUnknownRole
	}
	return role, parts[1], nil
}

// ServerToken builds the token a server announces with.
func ServerToken(payload string) string {
	return string(RoleServer) + tokenSeparator + payload
}

// ClientToken builds the token a client uses to look up the server at ip.
func ClientToken(ip string) string {
	return string(RoleClient) + tokenSeparator + ip
}
