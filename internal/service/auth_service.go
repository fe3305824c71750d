package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/versachat/versachat-api/internal/domain"
	"github.com/versachat/versachat-api/internal/provider"
	"github.com/versachat/versachat-api/internal/ratelimit"
	"github.com/versachat/versachat-api/internal/repository/ports"
	"github.com/versachat/versachat-api/internal/token"
	"github.com/versachat/versachat-api/internal/util"
	"github.com/versachat/versachat-api/internal/verification"
)

var (
	ErrEmailInvalid           = errors.New("invalid email address")
	ErrEmailAlreadyUsed       = errors.New("email already registered")
	ErrAccountAlreadyVerified = errors.New("account already verified")
	ErrRateLimited            = errors.New("too many requests")

	ErrCodeNotFound  = errors.New("verification code not found")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrCodeExhausted = errors.New("verification code attempts exhausted")
	ErrCodeMismatch  = errors.New("verification code mismatch")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrExternalOnly       = errors.New("account uses external login")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

// NotificationSender delivers outgoing auth mail. Welcome mail is
// best-effort; verification-code mail failures must reach the caller.
type NotificationSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}

// AuthResult is the uniform success payload for flows that establish a
// session.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates the credential store, challenge store, rate
// limiter, token manager and identity linker for every authentication flow.
type AuthService struct {
	users      ports.UserRepository
	challenges *verification.Store
	limiter    *ratelimit.FixedWindow
	tokens     *token.Manager
	linker     *IdentityLinker
	google     provider.IdentityProvider
	mailer     NotificationSender
	sessionTTL time.Duration
	resetTTL   time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	challenges *verification.Store,
	limiter *ratelimit.FixedWindow,
	tokens *token.Manager,
	linker *IdentityLinker,
	google provider.IdentityProvider,
	mailer NotificationSender,
	sessionTTL, resetTTL time.Duration,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = token.DefaultSessionTTL
	}
	if resetTTL <= 0 {
		resetTTL = token.ResetTTL
	}
	return &AuthService{
		users:      users,
		challenges: challenges,
		limiter:    limiter,
		tokens:     tokens,
		linker:     linker,
		google:     google,
		mailer:     mailer,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}
}

// RequestSignupCode issues a one-time code for email and mails it. The code
// replaces any prior one. Returns the normalized email the challenge is
// keyed under and the code lifetime in seconds.
func (s *AuthService) RequestSignupCode(ctx context.Context, email, clientAddr string) (string, int, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", 0, err
	}
	if !s.limiter.Allow(clientAddr) {
		return "", 0, ErrRateLimited
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", 0, err
	}
	if existing != nil && existing.Verified {
		return "", 0, ErrAccountAlreadyVerified
	}

	code, err := s.challenges.Issue(email)
	if err != nil {
		return "", 0, err
	}
	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		return "", 0, err
	}
	return email, s.challenges.RemainingSeconds(email), nil
}

// CompleteSignup verifies the one-time code and establishes the account.
// An existing unverified record is upgraded in place: the freshly proven
// mailbox control outranks whatever partial state was left behind.
func (s *AuthService) CompleteSignup(ctx context.Context, email, code, password string, displayName *string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	// Reject the password before consuming the challenge so the user can
	// retry with the same code.
	if err := util.ValidatePassword(password); err != nil {
		return nil, err
	}

	switch s.challenges.Verify(email, code) {
	case verification.OutcomeVerified:
	case verification.OutcomeNotFound:
		return nil, ErrCodeNotFound
	case verification.OutcomeExpired:
		return nil, ErrCodeExpired
	case verification.OutcomeExhausted:
		return nil, ErrCodeExhausted
	default:
		return nil, ErrCodeMismatch
	}

	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return nil, ErrEmailAlreadyUsed
	case err == nil:
		user, err = s.users.VerifyWithPassword(ctx, existing.ID, hash, salt)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, sql.ErrNoRows):
		user, err = s.users.CreateEmailUser(ctx, email, hash, salt, trimPtr(displayName))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrEmailAlreadyUsed
			}
			return nil, err
		}
	default:
		return nil, err
	}

	result, err := s.newSession(ctx, user)
	if err != nil {
		return nil, err
	}
	// Welcome mail never rolls back a completed registration.
	name := email
	if user.DisplayName != nil && *user.DisplayName != "" {
		name = *user.DisplayName
	}
	if err := s.mailer.SendWelcome(ctx, user.Email, name); err != nil {
		log.Printf("auth: send welcome to %s: %v", user.Email, err)
	}
	return result, nil
}

// LoginWithEmail authenticates a password account. Unknown email and wrong
// password collapse into the same error.
func (s *AuthService) LoginWithEmail(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrExternalOnly
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	return s.newSession(ctx, user)
}

// LoginWithGoogle exchanges a Google ID token for a session, linking or
// creating the local account as needed.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	profile, err := s.google.Exchange(ctx, idToken)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidCredential) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user, err := s.linker.Link(ctx, profile)
	if err != nil {
		return nil, err
	}
	tok, expiresAt, err := s.tokens.Issue(user, s.sessionTTL, token.IntentSession)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: tok, ExpiresAt: expiresAt}, nil
}

// RequestPasswordReset issues a reset token and mails it. Unknown and
// external-only accounts return nil so responses never reveal whether an
// email is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if !user.HasPassword() {
		return nil
	}

	resetToken, expiresAt, err := s.tokens.Issue(user, s.resetTTL, token.IntentPasswordReset)
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		// The stored token is useless if the mail never went out.
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			log.Printf("auth: clear reset token for %s: %v", user.ID, clearErr)
		}
		return err
	}
	return nil
}

// CompletePasswordReset consumes a reset token. Single use is enforced by
// clearing the stored token, not by token revocation.
func (s *AuthService) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := util.ValidatePassword(newPassword); err != nil {
		return err
	}
	claims, err := s.tokens.Verify(resetToken, token.IntentPasswordReset)
	if err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if user.ResetToken == nil || *user.ResetToken != resetToken {
		return ErrResetTokenInvalid
	}
	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return err
	}
	return s.users.ClearResetToken(ctx, user.ID)
}

// ChangePassword rotates the password of an authenticated account.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrExternalOnly
	}
	if !util.VerifyPassword(currentPassword, user.PasswordSalt, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash, salt)
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, sessionToken string) (*domain.User, error) {
	claims, err := s.tokens.Verify(sessionToken, token.IntentSession)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the display name of an authenticated account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName *string) (*domain.User, error) {
	return s.users.UpdateProfile(ctx, userID, trimPtr(displayName), nil)
}

func (s *AuthService) newSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("auth: update last login for %s: %v", user.ID, err)
	}
	tok, expiresAt, err := s.tokens.Issue(user, s.sessionTTL, token.IntentSession)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: tok, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
