package domain

import (
	"fmt"
	"strings"
)

// Role is the marketplace role of an account.
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
)

// DefaultRole is assigned to accounts created through signup.
const DefaultRole = RoleGuest

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleHost, RoleAdmin:
		return true
	}
	return false
}

// Satisfies reports whether an account holding r may act as required.
// ADMIN satisfies every role; any other role only satisfies itself.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

func (r Role) String() string { return string(r) }
