package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/handler"
	"github.com/iliyamo/tts-access-api/internal/middleware"
	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

// Permission names checked by the admin gates.  They match the seeded
// `permissions` rows.
const (
	PermViewUsers   = "view_users"
	PermManageRoles = "manage_roles"
	PermDeleteUsers = "delete_users"
)

// Guards bundles the middleware shared by the route groups.
type Guards struct {
	Tokens    *utils.TokenIssuer
	Authz     *service.Authorizer
	W         response.Writer
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (g Guards) jwt() echo.MiddlewareFunc { return middleware.JWTAuth(g.Tokens, g.W) }

func (g Guards) perm(name string) echo.MiddlewareFunc {
	return middleware.RequirePermission(g.Authz, g.W, name)
}

// RegisterRoutes registers routes that need no authentication: the health
// check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the registration, verification, login and
// password-reset endpoints under /api/auth, all behind the rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	grp := e.Group("/api/auth", g.RateLimit)
	grp.POST("/register", a.Register)
	grp.POST("/verify-email", a.VerifyEmail)
	grp.POST("/resend-otp", a.ResendOtp)
	grp.POST("/login", a.Login)
	grp.POST("/forgot-password", a.ForgotPassword)
	grp.POST("/verify-otp", a.VerifyOtp)
	grp.POST("/reset-password", a.ResetPassword)
}

// RegisterUser registers the profile and TTS endpoints; each requires a
// valid bearer token.
func RegisterUser(e *echo.Echo, u *handler.UserHandler, g Guards) {
	grp := e.Group("/api/users", g.jwt())
	grp.GET("/profile", u.GetProfile)
	grp.PUT("/profile", u.UpdateProfile)
	grp.POST("/text-to-speech", u.TextToSpeech)
	grp.GET("/get-status/:taskId", u.GetStatus)
}

// RegisterAdmin registers user management.  Each route checks exactly one
// permission; the role listing is response-cached after its gate.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, g Guards) {
	grp := e.Group("/api/admin", g.jwt())
	grp.GET("/view_users", a.ViewUsers, g.perm(PermViewUsers))
	grp.PUT("/assign-role", a.AssignRole, g.perm(PermManageRoles))
	grp.DELETE("/delete-user/:id", a.DeleteUser, g.perm(PermDeleteUsers))
	grp.GET("/roles", a.ListRoles, g.perm(PermManageRoles), g.Cache)
}
