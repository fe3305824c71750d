package provider

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/idtoken"
)

// Google validates Google ID tokens and maps them to the normalized profile.
type Google struct {
	audience string
}

func NewGoogle(audience string) *Google {
	return &Google{audience: audience}
}

func (g *Google) Exchange(ctx context.Context, credential string) (*Profile, error) {
	payload, err := idtoken.Validate(ctx, credential, g.audience)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("google token missing email claim")
	}

	profile := &Profile{
		ID:    payload.Subject,
		Email: email,
	}
	if name, _ := payload.Claims["name"].(string); strings.TrimSpace(name) != "" {
		trimmed := strings.TrimSpace(name)
		profile.DisplayName = &trimmed
	}
	if picture, _ := payload.Claims["picture"].(string); strings.TrimSpace(picture) != "" {
		trimmed := strings.TrimSpace(picture)
		profile.AvatarURL = &trimmed
	}
	return profile, nil
}
