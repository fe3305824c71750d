package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/versachat/versachat-api/internal/domain"
)

// UserRepository is the durable credential store. Email uniqueness is
// enforced by the backing store's unique key, not by check-then-insert;
// concurrent creations for the same email surface as a constraint violation
// to exactly one caller.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)

	CreateEmailUser(ctx context.Context, email string, passwordHash, passwordSalt []byte, displayName *string) (*domain.User, error)
	CreateExternalUser(ctx context.Context, email, externalID string, displayName, avatarURL *string) (*domain.User, error)
	AttachExternalID(ctx context.Context, id uuid.UUID, externalID string, displayName, avatarURL *string) (*domain.User, error)

	VerifyWithPassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName *string, avatarURL *string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error

	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
}
