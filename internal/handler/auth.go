package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
)

// requestTimeout bounds every store and mail call made for one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// AuthFlows is implemented by service.AuthService.
type AuthFlows interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	VerifyEmail(ctx context.Context, email, code string) (model.User, error)
	ResendOtp(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOtp(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, email, newPassword, ticket string) error
}

// AuthHandler serves the unauthenticated /api/auth endpoints.
type AuthHandler struct {
	Auth AuthFlows
	W    response.Writer
}

func NewAuthHandler(auth AuthFlows, w response.Writer) *AuthHandler {
	return &AuthHandler{Auth: auth, W: w}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type emailReq struct {
	Email string `json:"email"`
}

type emailOtpReq struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetReq struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	ResetTicket string `json:"resetTicket"`
}

type registeredUser struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

type accountView struct {
	ID         uint64 `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

func toAccountView(u model.User) accountView {
	return accountView{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		Username: u.Username, Role: u.RoleName, IsVerified: u.IsVerified,
	}
}

func (h *AuthHandler) badBody(c echo.Context, err error) error {
	return h.W.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
}

// Register: POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName, LastName: req.LastName, Username: req.Username,
		Email: req.Email, Password: req.Password, Role: req.Role,
	})
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusCreated, "Registration successful. Please check your email for verification.",
		registeredUser{
			FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
			Email: u.Email, Role: u.RoleName, ProfilePicture: u.ProfilePicture,
		})
}

// VerifyEmail: POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req emailOtpReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.VerifyEmail(ctx, req.Email, req.Otp)
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Email verified successfully!", echo.Map{"user": toAccountView(u)})
}

// ResendOtp: POST /api/auth/resend-otp.  The new code is echoed only in
// development.
func (h *AuthHandler) ResendOtp(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	code, err := h.Auth.ResendOtp(ctx, req.Email)
	if err != nil {
		return h.W.Err(c, err)
	}
	var data any
	if h.W.Dev {
		data = echo.Map{"otp": code}
	}
	return h.W.OK(c, http.StatusOK, "New verification email sent successfully!", data)
}

// Login: POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Login successful", echo.Map{
		"token":     res.Token.Token,
		"expiresAt": res.Token.Exp,
		"user":      toAccountView(res.User),
	})
}

// ForgotPassword: POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "OTP sent successfully!", nil)
}

// VerifyOtp: POST /api/auth/verify-otp.  When reset tickets are enabled the
// ticket is returned as data.resetTicket.
func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	var req emailOtpReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ticket, err := h.Auth.VerifyOtp(ctx, req.Email, req.Otp)
	if err != nil {
		return h.W.Err(c, err)
	}
	var data any
	if ticket != "" {
		data = echo.Map{"resetTicket": ticket}
	}
	return h.W.OK(c, http.StatusOK, "OTP verified. Proceed to reset password.", data)
}

// ResetPassword: POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return h.badBody(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Email, req.NewPassword, req.ResetTicket); err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Password reset successfully!", nil)
}
