package authority

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Role is the network role of a participant.
type Role uint8

const (
	RoleUndefined Role = iota
	// RoleStandalone simulates every shooter with no replication.
	RoleStandalone
	// RoleServer simulates every shooter and broadcasts each shot to clients.
	RoleServer
	// RoleClient predicts the shots of its own shooters and replays the server's broadcasts for
	// everyone else.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleStandalone:
		return "standalone"
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	case RoleUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// ParseRole parses a role name, ignoring case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standalone":
		return RoleStandalone, nil
	case "server":
		return RoleServer, nil
	case "client":
		return RoleClient, nil
	default:
		return RoleUndefined, eris.Errorf("invalid role %q, must be one of standalone, server, client", s)
	}
}

// UnmarshalText lets roles be read from environment variables.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Simulates reports whether a participant with this role runs fire control for shooters it does
// not own.
func (r Role) Simulates(owned bool) bool {
	return owned || r != RoleClient
}
