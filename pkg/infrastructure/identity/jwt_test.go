package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_Verify(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	clockNow := func() time.Time { return now }
	v := NewJWTVerifier("test-secret", "marketsim", clockNow, nil)
	ctx := context.Background()

	require.NoError(t, v.IssueAndRegister("stand-1", "stand", time.Hour))
	assert.True(t, v.Verify(ctx, "stand-1"))

	t.Run("unregistered party", func(t *testing.T) {
		assert.False(t, v.Verify(ctx, "stranger"))
	})

	t.Run("credential for someone else", func(t *testing.T) {
		token, err := v.Issue("stand-2", "stand", time.Hour)
		require.NoError(t, err)
		v.Register("impostor", token)
		assert.False(t, v.Verify(ctx, "impostor"))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTVerifier("other-secret", "marketsim", clockNow, nil)
		token, err := other.Issue("sup-1", "supplier", time.Hour)
		require.NoError(t, err)
		v.Register("sup-1", token)
		assert.False(t, v.Verify(ctx, "sup-1"))
	})

	t.Run("expired on the simulation clock", func(t *testing.T) {
		require.NoError(t, v.IssueAndRegister("agent-1", "agent", time.Minute))
		now = now.Add(2 * time.Minute)
		defer func() { now = now.Add(-2 * time.Minute) }()
		assert.False(t, v.Verify(ctx, "agent-1"))
	})
}

func TestJWTVerifier_Validate(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	v := NewJWTVerifier("s3cret", "marketsim", func() time.Time { return now }, nil)

	token, err := v.Issue("stand-9", "stand", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "stand-9", claims.Subject)
	assert.Equal(t, "stand", claims.PartyKind)

	_, err = v.Validate("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestAllowAllAndDenyList(t *testing.T) {
	ctx := context.Background()
	assert.True(t, AllowAll{}.Verify(ctx, "anyone"))

	deny := DenyList{"bad": true}
	assert.False(t, deny.Verify(ctx, "bad"))
	assert.True(t, deny.Verify(ctx, "good"))
}
