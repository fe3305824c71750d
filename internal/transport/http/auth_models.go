package http

import "time"

// ErrorResponse is the uniform failure payload.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"invalid credentials"`
}

// AuthUser models the sanitized user representation returned by auth
// endpoints.
type AuthUser struct {
	ID          string     `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email       string     `json:"email" example:"user@example.com"`
	Verified    bool       `json:"verified" example:"true"`
	DisplayName *string    `json:"display_name,omitempty" example:"Sam"`
	AvatarURL   *string    `json:"avatar_url,omitempty" example:"https://cdn.example.com/avatar.png"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" example:"2024-01-01T12:00:00Z"`
	UpdatedAt   time.Time  `json:"updated_at" example:"2024-01-02T09:30:00Z"`
}

// AuthTokenResponse is returned by endpoints that establish a session.
type AuthTokenResponse struct {
	Success   bool     `json:"success" example:"true"`
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2024-01-09T09:30:00Z"`
	User      AuthUser `json:"user"`
}

// CodeRequestedResponse is returned after a signup code is issued.
type CodeRequestedResponse struct {
	Success          bool   `json:"success" example:"true"`
	Email            string `json:"email" example:"user@example.com"`
	ExpiresInSeconds int    `json:"expiresInSeconds" example:"600"`
}

// MessageResponse carries a generic human-readable outcome.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Password updated."`
}

// RequestCodeRequest starts the signup flow.
type RequestCodeRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// CompleteSignupRequest finishes the signup flow.
type CompleteSignupRequest struct {
	Email       string  `json:"email" example:"user@example.com"`
	Code        string  `json:"code" example:"042187"`
	Password    string  `json:"password" example:"correct horse"`
	DisplayName *string `json:"displayName,omitempty" example:"Sam"`
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// GoogleLoginRequest carries the Google ID token for login.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// PasswordResetRequest asks for a reset link.
type PasswordResetRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// PasswordResetCompleteRequest redeems a reset token.
type PasswordResetCompleteRequest struct {
	Token       string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	NewPassword string `json:"newPassword" example:"better horse"`
}

// ChangePasswordRequest rotates the password of an authenticated account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" example:"correct horse"`
	NewPassword     string `json:"newPassword" example:"better horse"`
}

// UpdateProfileRequest edits profile fields.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" example:"Sam"`
}
