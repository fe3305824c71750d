package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/versachat/versachat-api/internal/domain"
	"github.com/versachat/versachat-api/internal/service"
	"github.com/versachat/versachat-api/internal/token"
	"github.com/versachat/versachat-api/internal/util"
)

const (
	contextUserKey  = "auth.user"
	contextTokenKey = "auth.token"
)

// RequireAuth authenticates requests via the Authorization header. A missing
// or non-Bearer header is treated as unauthenticated, not as a malformed
// request.
func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := token.ExtractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Fail("authentication required"))
			}
			user, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Fail("invalid or expired token"))
			}
			c.Set(contextUserKey, user)
			c.Set(contextTokenKey, raw)
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextUserKey).(*domain.User)
	return user, ok
}
