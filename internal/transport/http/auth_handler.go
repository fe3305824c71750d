package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/versachat/versachat-api/internal/service"
	"github.com/versachat/versachat-api/internal/token"
	"github.com/versachat/versachat-api/internal/util"
)

// RegisterAuth wires the authentication routes.
func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	e.POST("/v1/auth/signup/request-code", requestSignupCode(auth))
	e.POST("/v1/auth/signup/complete", completeSignup(auth))
	e.POST("/v1/auth/login", login(auth))
	e.POST("/v1/auth/google", loginWithGoogle(auth))
	e.POST("/v1/auth/password-reset/request", requestPasswordReset(auth))
	e.POST("/v1/auth/password-reset/complete", completePasswordReset(auth))

	protected := e.Group("", RequireAuth(auth))
	protected.POST("/v1/auth/password", changePassword(auth))
	protected.GET("/v1/me", currentProfile())
	protected.PUT("/v1/me", updateProfile(auth))
}

func requestSignupCode(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req RequestCodeRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		email, expiresIn, err := auth.RequestSignupCode(c.Request().Context(), req.Email, c.RealIP())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK(util.Envelope{
			"email":            email,
			"expiresInSeconds": expiresIn,
		}))
	}
}

func completeSignup(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req CompleteSignupRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		result, err := auth.CompleteSignup(c.Request().Context(), req.Email, req.Code, req.Password, req.DisplayName)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusCreated, sessionPayload(result))
	}
}

func login(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req LoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		result, err := auth.LoginWithEmail(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, sessionPayload(result))
	}
}

func loginWithGoogle(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req GoogleLoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		result, err := auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, sessionPayload(result))
	}
}

// The reset-request response is identical whether or not the email is
// registered.
const resetRequestedMessage = "If that email is registered, a reset link is on its way."

func requestPasswordReset(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PasswordResetRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		if err := auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, util.Message(resetRequestedMessage))
	}
}

func completePasswordReset(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PasswordResetCompleteRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		if err := auth.CompletePasswordReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, util.Message("Password updated."))
	}
}

func changePassword(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, util.Fail("authentication required"))
		}
		var req ChangePasswordRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		if err := auth.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, util.Message("Password updated."))
	}
}

func currentProfile() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, util.Fail("authentication required"))
		}
		return c.JSON(http.StatusOK, util.OK(util.Envelope{"user": user.Public()}))
	}
}

func updateProfile(auth *service.AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, util.Fail("authentication required"))
		}
		var req UpdateProfileRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Fail("malformed request body"))
		}
		updated, err := auth.UpdateProfile(c.Request().Context(), user.ID, req.DisplayName)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, util.OK(util.Envelope{"user": updated.Public()}))
	}
}

func sessionPayload(result *service.AuthResult) util.Envelope {
	return util.OK(util.Envelope{
		"user":       result.User.Public(),
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

// writeServiceError maps service errors onto the uniform failure envelope.
// Unrecognized errors become an opaque 500 so internals never leak.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailInvalid),
		errors.Is(err, util.ErrPasswordTooShort),
		errors.Is(err, service.ErrCodeNotFound),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrCodeExhausted),
		errors.Is(err, service.ErrCodeMismatch):
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, util.Fail(err.Error()))
	case errors.Is(err, service.ErrEmailAlreadyUsed),
		errors.Is(err, service.ErrAccountAlreadyVerified):
		return c.JSON(http.StatusConflict, util.Fail(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrResetTokenInvalid),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrBadSignature),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrWrongIntent):
		return c.JSON(http.StatusUnauthorized, util.Fail(err.Error()))
	case errors.Is(err, service.ErrNotVerified),
		errors.Is(err, service.ErrExternalOnly):
		return c.JSON(http.StatusForbidden, util.Fail(err.Error()))
	default:
		c.Logger().Errorf("auth: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Fail("internal error"))
	}
}
