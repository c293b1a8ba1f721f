package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRole_Satisfies(t *testing.T) {
	roles := []Role{RoleGuest, RoleHost, RoleAdmin}

	for _, have := range roles {
		for _, need := range roles {
			want := have == RoleAdmin || have == need
			require.Equal(t, want, have.Satisfies(need), "%s satisfies %s", have, need)
		}
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("host")
	require.NoError(t, err)
	require.Equal(t, RoleHost, r)

	_, err = ParseRole("owner")
	require.Error(t, err)

	require.False(t, Role("").Valid())
}
