package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/versachat/versachat-api/internal/domain"
)

const userColumns = `id, email, password_hash, password_salt, external_id, verified, display_name, avatar_url, reset_token, reset_token_expires_at, last_login_at, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE email = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE external_id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, externalID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateEmailUser(ctx context.Context, email string, passwordHash, passwordSalt []byte, displayName *string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (email, password_hash, password_salt, display_name, verified)
        VALUES ($1, $2, $3, $4, TRUE)
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, email, passwordHash, passwordSalt, displayName)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateExternalUser(ctx context.Context, email, externalID string, displayName, avatarURL *string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (email, external_id, display_name, avatar_url, verified)
        VALUES ($1, $2, $3, $4, TRUE)
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, email, externalID, displayName, avatarURL)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) AttachExternalID(ctx context.Context, id uuid.UUID, externalID string, displayName, avatarURL *string) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET external_id = $2,
            verified = TRUE,
            display_name = COALESCE(display_name, $3),
            avatar_url = COALESCE(avatar_url, $4),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, id, externalID, displayName, avatarURL)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) VerifyWithPassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            verified = TRUE,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, id, passwordHash, passwordSalt)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, passwordHash, passwordSalt)
	return err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, displayName *string, avatarURL *string) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET display_name = COALESCE($2, display_name),
            avatar_url = COALESCE($3, avatar_url),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, id, displayName, avatarURL)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_account
        SET last_login_at = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// SetResetToken stores the single active reset token for the user; any
// previous token is overwritten.
func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	const query = `
        UPDATE user_account
        SET reset_token = $2,
            reset_token_expires_at = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, token, expiresAt)
	return err
}

// ClearResetToken removes both the token and its expiry together, keeping
// the both-or-neither invariant.
func (r *UserRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_account
        SET reset_token = NULL,
            reset_token_expires_at = NULL,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
