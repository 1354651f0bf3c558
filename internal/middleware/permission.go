package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
)

// RequirePermission admits the request only when the caller's current role
// grants perm.  It must run after JWTAuth.  Each gate checks one
// permission; stack gates for compound requirements.  The loaded user is
// available to handlers through CurrentUser.
func RequirePermission(authz *service.Authorizer, w response.Writer, perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := authz.Authorize(c.Request().Context(), IdentityFrom(c), perm)
			if err != nil {
				return w.Err(c, err)
			}
			c.Set(currentUserKey, u)
			return next(c)
		}
	}
}
