package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/versachat/versachat-api/internal/domain"
	"github.com/versachat/versachat-api/internal/media"
	"github.com/versachat/versachat-api/internal/provider"
	"github.com/versachat/versachat-api/internal/repository/ports"
)

// HTTPDoer abstracts the HTTP client used to fetch provider avatars so tests
// can substitute a fake.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IdentityLinker reconciles a third-party profile with the credential store.
// Lookup order is fixed: external id first, then email. Linking the same
// profile twice always resolves to the same user.
type IdentityLinker struct {
	users        ports.UserRepository
	storage      ports.ObjectStorage
	avatars      media.Processor
	avatarBucket string
	httpClient   HTTPDoer
}

func NewIdentityLinker(users ports.UserRepository, storage ports.ObjectStorage, avatars media.Processor, avatarBucket string) *IdentityLinker {
	return &IdentityLinker{
		users:        users,
		storage:      storage,
		avatars:      avatars,
		avatarBucket: avatarBucket,
		httpClient:   http.DefaultClient,
	}
}

// Link resolves profile to a user record, creating or linking as needed.
// Third-party identities arrive pre-verified, so an email match flips the
// account to verified when the external id is attached.
func (l *IdentityLinker) Link(ctx context.Context, profile *provider.Profile) (*domain.User, error) {
	user, err := l.users.FindByExternalID(ctx, profile.ID)
	if err == nil {
		if err := l.users.UpdateLastLogin(ctx, user.ID); err != nil {
			log.Printf("identity: update last login for %s: %v", user.ID, err)
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	email := normalizeEmail(profile.Email)

	user, err = l.users.FindByEmail(ctx, email)
	if err == nil {
		avatarURL := l.resolveAvatar(ctx, user.ID, user.AvatarURL, profile.AvatarURL)
		linked, err := l.users.AttachExternalID(ctx, user.ID, profile.ID, profile.DisplayName, avatarURL)
		if err != nil {
			return nil, err
		}
		if err := l.users.UpdateLastLogin(ctx, linked.ID); err != nil {
			log.Printf("identity: update last login for %s: %v", linked.ID, err)
		}
		return linked, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	created, err := l.users.CreateExternalUser(ctx, email, profile.ID, profile.DisplayName, profile.AvatarURL)
	if err != nil {
		// A concurrent first login for the same profile may win the
		// insert; resolving by external id keeps Link idempotent.
		if isUniqueViolation(err) {
			return l.users.FindByExternalID(ctx, profile.ID)
		}
		return nil, err
	}
	if cached := l.resolveAvatar(ctx, created.ID, nil, profile.AvatarURL); cached != nil && (created.AvatarURL == nil || *cached != *created.AvatarURL) {
		if updated, err := l.users.UpdateProfile(ctx, created.ID, nil, cached); err == nil && updated != nil {
			created = updated
		} else if err != nil {
			log.Printf("identity: persist cached avatar for %s: %v", created.ID, err)
		}
	}
	if err := l.users.UpdateLastLogin(ctx, created.ID); err != nil {
		log.Printf("identity: update last login for %s: %v", created.ID, err)
	}
	return created, nil
}

// resolveAvatar returns the avatar URL to persist: the cached object URL
// when caching applies and succeeds, otherwise the provider URL. Caching
// failures only cost us the copy, never the login.
func (l *IdentityLinker) resolveAvatar(ctx context.Context, userID uuid.UUID, existing *string, picture *string) *string {
	if picture == nil {
		return nil
	}
	if !l.shouldCacheAvatar(existing, *picture) {
		return nil
	}
	if l.storage == nil || l.avatarBucket == "" {
		return picture
	}
	cached, err := l.cacheAvatar(ctx, userID, *picture)
	if err != nil {
		log.Printf("identity: cache avatar: %v", err)
		return picture
	}
	return cached
}

// shouldCacheAvatar decides whether the provider picture should replace the
// stored avatar. A user-chosen avatar on another host is never overwritten.
func (l *IdentityLinker) shouldCacheAvatar(existing *string, picture string) bool {
	picture = strings.TrimSpace(picture)
	if picture == "" {
		return false
	}
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return true
	}
	current := strings.TrimSpace(*existing)
	if current == picture {
		return true
	}
	return isProviderHosted(current)
}

func isProviderHosted(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(parsed.Host, "googleusercontent.com")
}

func (l *IdentityLinker) cacheAvatar(ctx context.Context, userID uuid.UUID, pictureURL string) (*string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}

	upload := media.Upload{
		Reader:      resp.Body,
		Size:        resp.ContentLength,
		FileName:    path.Base(req.URL.Path),
		ContentType: resp.Header.Get("Content-Type"),
	}
	result, err := l.avatars.Process(ctx, upload, 0)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), extensionFor(result.ContentType))
	uploaded, err := l.storage.Upload(ctx, l.avatarBucket, objectName, result.ContentType, bytes.NewReader(result.Bytes), int64(len(result.Bytes)))
	if err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
