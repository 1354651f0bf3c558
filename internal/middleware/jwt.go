package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

// JWTAuth validates the Bearer token on the request and stores the caller's
// identity for downstream middleware and handlers.  A missing or empty
// Authorization header is answered with 401; any presented value that does
// not verify gets 400.
func JWTAuth(tokens *utils.TokenIssuer, w response.Writer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// The "Bearer " prefix is optional; any other value is verified as is.
			raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")

			claims, err := tokens.Verify(raw)
			if errors.Is(err, utils.ErrMissingToken) {
				return w.Err(c, service.Unauthenticated(service.CodeUnauthenticated, "Authentication required"))
			}
			if err != nil {
				return w.Err(c, service.Unauthenticated(service.CodeInvalidToken, "Invalid or Expired Token"))
			}

			SetIdentity(c, &service.Identity{UserID: claims.ID, Email: claims.Email, RoleID: claims.Role})
			return next(c)
		}
	}
}
