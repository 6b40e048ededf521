package core

import "strings"

// Role gates what a session may do with shared content.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
)

// ParseRole normalizes s into a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleWriter:
		return RoleWriter, true
	case RoleReader:
		return RoleReader, true
	default:
		return "", false
	}
}

// Assignable reports whether r may be granted through a role change.
// Admin status comes only from the room's admin claim.
func (r Role) Assignable() bool {
	return r == RoleWriter || r == RoleReader
}

func (r Role) String() string {
	return string(r)
}
