package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func fingerprint(token string) string { return cryptox.FingerprintToken(token) }

func TestRevoke_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exp := f.clock.Now().Add(time.Hour)

	require.NoError(t, f.revocations.Revoke(ctx, "tok", exp, "", ""))
	require.ErrorIs(t, f.revocations.Revoke(ctx, "tok", exp, "", ""), ErrAlreadyRevoked)

	revoked, err := f.revocations.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = f.revocations.IsRevoked(ctx, "other")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRevoke_StoresFingerprintOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.revocations.Revoke(ctx, "raw-token-value", f.clock.Now().Add(time.Hour), "", "admin"))

	rec, err := f.store.RevokedTokens().GetRevokedToken(ctx, fingerprint("raw-token-value"))
	require.NoError(t, err)
	require.Equal(t, "admin", rec.Reason)
	require.Nil(t, rec.SubjectID)
	require.NotContains(t, rec.Fingerprint, "raw-token-value")
}

func TestRevocationSweep_Boundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exp := f.clock.Now().Add(time.Hour)

	require.NoError(t, f.revocations.Revoke(ctx, "tok", exp, "alice", ""))

	n, err := f.revocations.SweepExpired(ctx, exp.Add(-time.Second))
	require.NoError(t, err)
	require.Zero(t, n)

	revoked, err := f.revocations.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	n, err = f.revocations.SweepExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	revoked, err = f.revocations.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.False(t, revoked)
}
