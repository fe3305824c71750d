package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the credential record for a chat account. A user always has at
// least one of a password or an external identity; both once linked.
type User struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        []byte     `db:"password_hash" json:"-"`
	PasswordSalt        []byte     `db:"password_salt" json:"-"`
	ExternalID          *string    `db:"external_id" json:"external_id,omitempty"`
	Verified            bool       `db:"verified" json:"verified"`
	DisplayName         *string    `db:"display_name" json:"display_name,omitempty"`
	AvatarURL           *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	ResetToken          *string    `db:"reset_token" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}

func (u *User) HasExternalIdentity() bool {
	return u.ExternalID != nil && *u.ExternalID != ""
}

// PublicUser is the projection returned by every endpoint that echoes a
// user object. Password and reset material never appear here.
type PublicUser struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Verified    bool       `json:"verified"`
	DisplayName *string    `json:"display_name,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Verified:    u.Verified,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
