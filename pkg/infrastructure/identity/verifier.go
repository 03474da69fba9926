package identity

import (
	"context"
)

// Verifier decides whether a party may take part in a money movement
type Verifier interface {
	Verify(ctx context.Context, partyID string) bool
}

// AllowAll approves every party
type AllowAll struct{}

// Verify always returns true
func (AllowAll) Verify(context.Context, string) bool {
	return true
}

// DenyList rejects the listed parties and approves everyone else
type DenyList map[string]bool

// Verify returns false for denied parties
func (d DenyList) Verify(_ context.Context, partyID string) bool {
	return !d[partyID]
}
