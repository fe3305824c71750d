package provider

import (
	"context"
	"errors"
)

// Profile is the normalized identity shape handed to the linker. Reconciling
// it with a local account never depends on which provider produced it.
type Profile struct {
	ID          string
	Email       string
	DisplayName *string
	AvatarURL   *string
}

// ErrInvalidCredential is returned when the provider rejects the presented
// credential (bad signature, wrong audience, expired).
var ErrInvalidCredential = errors.New("invalid provider credential")

// IdentityProvider exchanges a provider-specific credential for a normalized
// profile.
type IdentityProvider interface {
	Exchange(ctx context.Context, credential string) (*Profile, error)
}
