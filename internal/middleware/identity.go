package middleware

// identity.go holds the context keys shared by the auth middleware and the
// helpers handlers use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/service"
)

const (
	identityKey    = "identity"
	currentUserKey = "current_user"
)

// SetIdentity stores the verified token identity on the request.
func SetIdentity(c echo.Context, id *service.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the identity set by JWTAuth, or nil.
func IdentityFrom(c echo.Context) *service.Identity {
	id, _ := c.Get(identityKey).(*service.Identity)
	return id
}

// CurrentUser returns the user record loaded by RequirePermission.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(currentUserKey).(model.User)
	return u, ok
}

// userID returns the caller's id as a string, or "anon" when the request is
// not authenticated.
func userID(c echo.Context) string {
	if id := IdentityFrom(c); id != nil && id.UserID != 0 {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
