package core

import "strings"

// Role is the privilege level attached to an identity at registration.
type Role int

const (
	// RoleParticipant is an ordinary seated participant.
	RoleParticipant Role = iota
	// RoleHost owns the reserved top seat and may run privileged operations.
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "participant"
}

// Identity is a participant identity together with its resolved role.
type Identity struct {
	ID   string
	Role Role
}

// IsHost reports whether the identity carries the host role.
func (i Identity) IsHost() bool {
	return i.Role == RoleHost
}

// ParseIdentity resolves the role of a raw identity string once, using the host prefix convention.
func ParseIdentity(raw, hostPrefix string) Identity {
	id := Identity{ID: raw, Role: RoleParticipant}
	if hostPrefix != "" && strings.HasPrefix(raw, hostPrefix) {
		id.Role = RoleHost
	}
	return id
}

// SeatAssignment pairs an identity with the seat it occupies.
type SeatAssignment struct {
	ID   string
	Seat int
}
