package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/repository"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the shape local@domain.tld.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// AuthConfig carries the tunables of the verification and reset flows.
type AuthConfig struct {
	BcryptCost            int
	OTPTTL                time.Duration
	DefaultRole           string
	DefaultProfilePicture string
	ResetTicketRequired   bool
	ResetTicketTTL        time.Duration
}

// AuthService implements registration, email verification, login and the
// password-reset flow.
type AuthService struct {
	Users   UserStore
	Roles   RoleStore
	Otps    OtpStore
	Tickets TicketStore
	Tokens  *utils.TokenIssuer
	Mail    Mailer
	Log     *zap.Logger
	Cfg     AuthConfig

	now     func() time.Time
	newCode func() (string, error)
}

func NewAuthService(users UserStore, roles RoleStore, otps OtpStore, tickets TicketStore,
	tokens *utils.TokenIssuer, mail Mailer, log *zap.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{
		Users: users, Roles: roles, Otps: otps, Tickets: tickets,
		Tokens: tokens, Mail: mail, Log: log, Cfg: cfg,
		now:     time.Now,
		newCode: utils.GenerateOTP,
	}
}

// RegisterInput is the client-supplied registration form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Role      string
}

// Register creates an unverified account and mails it a verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return model.User{}, Validation(CodeValidation, "All fields are required")
	}
	if !ValidEmail(in.Email) {
		return model.User{}, Validation(CodeValidation, "Invalid email format")
	}

	existing, err := s.Users.FindByEmailOrUsername(ctx, in.Email, in.Username)
	switch {
	case err == nil:
		field := "username"
		if existing.Email == in.Email {
			field = "email"
		}
		return model.User{}, Conflict(field + " already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, Internal("Registration failed", err)
	}

	roleName := in.Role
	if roleName == "" {
		roleName = s.Cfg.DefaultRole
	}
	role, err := s.Roles.GetByName(ctx, roleName)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, Validation(CodeInvalidRole, "Invalid role provided")
	}
	if err != nil {
		return model.User{}, Internal("Registration failed", err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	code, err := s.newCode()
	if err != nil {
		return model.User{}, Internal("Registration failed", err)
	}

	u := model.User{
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      hash,
		RoleID:            role.ID,
		IsVerified:        false,
		VerificationToken: code,
		ProfilePicture:    s.Cfg.DefaultProfilePicture,
	}
	if err := s.Users.Create(ctx, &u); err != nil {
		return model.User{}, userWriteError(err, "Registration failed")
	}
	u.RoleName = role.Name

	// The account exists at this point; a lost code can be replaced through
	// resend-otp, so a failed insert does not fail the registration.
	if err := s.Otps.Create(ctx, u.Email, code, s.now()); err != nil {
		s.Log.Warn("otp store failed", zap.String("email", u.Email), zap.Error(err))
	}
	dispatch(ctx, s.Mail, s.Log, u.Email, "Verify Your Email",
		fmt.Sprintf("Your verification code is: %s\n\nThis code will expire in %d minutes.", code, int(s.Cfg.OTPTTL.Minutes())))
	return u, nil
}

// VerifyEmail confirms the account's email with the most recent matching
// code.  Codes older than OTPTTL are rejected and every outstanding code for
// the address is purged.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (model.User, error) {
	email, code = normalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return model.User{}, Validation(CodeValidation, "Email and OTP are required")
	}

	otp, err := s.Otps.LatestMatch(ctx, email, code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, Validation(CodeInvalidOTP, "Invalid OTP")
	}
	if err != nil {
		return model.User{}, Internal("Email verification failed", err)
	}

	if otp.Age(s.now()) > s.Cfg.OTPTTL {
		if _, err := s.Otps.DeleteByEmail(ctx, email); err != nil {
			s.Log.Warn("otp purge failed", zap.String("email", email), zap.Error(err))
		}
		return model.User{}, Expired("OTP has expired")
	}

	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, NotFound(CodeUserNotFound, "User not found")
	}
	if err != nil {
		return model.User{}, Internal("Email verification failed", err)
	}
	if u.VerificationToken != code {
		return model.User{}, Validation(CodeVerificationMismatch, "Verification failed")
	}

	if err := s.Users.MarkVerified(ctx, u.ID); err != nil {
		return model.User{}, Internal("Email verification failed", err)
	}
	u.IsVerified, u.VerificationToken = true, ""
	if _, err := s.Otps.DeleteByEmail(ctx, email); err != nil {
		s.Log.Warn("otp purge failed", zap.String("email", email), zap.Error(err))
	}
	u.RoleName = s.roleName(ctx, u.RoleID)
	return u, nil
}

// ResendOtp replaces every outstanding code for an unverified account with
// a fresh one and mails it.  The new code is returned so development builds
// can echo it.
func (s *AuthService) ResendOtp(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", Validation(CodeValidation, "Email is required")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", NotFound(CodeUserNotFound, "User not found")
	}
	if err != nil {
		return "", Internal("Error resending verification email", err)
	}
	if u.IsVerified {
		return "", Validation(CodeAlreadyVerified, "Email is already verified")
	}

	if _, err := s.Otps.DeleteByEmail(ctx, email); err != nil {
		return "", Internal("Error resending verification email", err)
	}
	code, err := s.newCode()
	if err != nil {
		return "", Internal("Error resending verification email", err)
	}
	if err := s.Users.SetVerificationToken(ctx, u.ID, code); err != nil {
		return "", Internal("Error resending verification email", err)
	}
	if err := s.Otps.Create(ctx, email, code, s.now()); err != nil {
		return "", Internal("Error resending verification email", err)
	}
	dispatch(ctx, s.Mail, s.Log, email, "Your New Verification Code",
		fmt.Sprintf("Your new verification code is: %s\n\nThis code will expire in %d minutes.", code, int(s.Cfg.OTPTTL.Minutes())))
	return code, nil
}

// LoginResult is a signed token plus the account it was issued for.
type LoginResult struct {
	Token utils.AccessToken
	User  model.User
}

// Login checks credentials and issues a bearer token.  Unknown email and
// wrong password produce the same client message.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, Validation(CodeValidation, "Email and password are required")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, invalidCredentials("user not found with provided email")
	}
	if err != nil {
		return LoginResult{}, Internal("Server error", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, invalidCredentials("password does not match")
	}
	if !u.IsVerified {
		return LoginResult{}, Forbidden(CodeEmailNotVerified,
			"Email not verified. Please check your email for verification instructions.")
	}

	tok, err := s.Tokens.Issue(u.ID, u.Email, u.RoleID)
	if err != nil {
		return LoginResult{}, Internal("Server error", err)
	}
	u.RoleName = s.roleName(ctx, u.RoleID)
	return LoginResult{Token: tok, User: u}, nil
}

// ForgotPassword mails a reset code to an existing account.  Older codes
// for the address stay valid until one is used.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return Validation(CodeValidation, "Email is required")
	}
	if _, err := s.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(CodeUserNotFound, "User not found")
		}
		return Internal("Error sending OTP", err)
	}
	code, err := s.newCode()
	if err != nil {
		return Internal("Error sending OTP", err)
	}
	if err := s.Otps.Create(ctx, email, code, s.now()); err != nil {
		return Internal("Error sending OTP", err)
	}
	dispatch(ctx, s.Mail, s.Log, email, "Password Reset OTP", "Your OTP is: "+code)
	return nil
}

// VerifyOtp checks a reset code and consumes every code for the address.
// When reset tickets are required it returns a single-use ticket that
// ResetPassword must present; otherwise the ticket is empty.
func (s *AuthService) VerifyOtp(ctx context.Context, email, code string) (string, error) {
	email, code = normalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", Validation(CodeValidation, "Email and OTP are required")
	}
	if _, err := s.Otps.LatestMatch(ctx, email, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", Validation(CodeInvalidOTP, "Invalid OTP")
		}
		return "", Internal("Error verifying OTP", err)
	}
	if _, err := s.Otps.DeleteByEmail(ctx, email); err != nil {
		return "", Internal("Error verifying OTP", err)
	}
	if !s.Cfg.ResetTicketRequired {
		return "", nil
	}

	now := s.now()
	ticket, err := utils.NewResetTicket()
	if err != nil {
		return "", Internal("Error verifying OTP", err)
	}
	if err := s.Tickets.RevokeAllForEmail(ctx, email, now); err != nil {
		return "", Internal("Error verifying OTP", err)
	}
	if err := s.Tickets.Store(ctx, email, utils.HashTicket(ticket), now.Add(s.Cfg.ResetTicketTTL)); err != nil {
		return "", Internal("Error verifying OTP", err)
	}
	return ticket, nil
}

// ResetPassword overwrites the password of the account with email.  Without
// reset tickets the call is unconditional and succeeds even when no account
// matches.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, ticket string) error {
	email = normalizeEmail(email)
	if email == "" || newPassword == "" {
		return Validation(CodeValidation, "Email and new password are required")
	}
	if s.Cfg.ResetTicketRequired {
		ticket = strings.TrimSpace(ticket)
		if ticket == "" {
			return Validation(CodeResetTicketRequired, "Reset ticket required")
		}
		err := s.Tickets.Consume(ctx, email, utils.HashTicket(ticket), s.now())
		if errors.Is(err, repository.ErrNotFound) {
			return Validation(CodeResetTicketRequired, "Invalid or expired reset ticket")
		}
		if err != nil {
			return Internal("Error resetting password", err)
		}
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	n, err := s.Users.UpdatePasswordByEmail(ctx, email, hash)
	if err != nil {
		return Internal("Error resetting password", err)
	}
	if n == 0 {
		s.Log.Info("password reset matched no account", zap.String("email", email))
	}
	return nil
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := utils.HashPassword(password, s.Cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", Validation(CodeValidation, "Password is too long")
	}
	if err != nil {
		return "", Internal("Server error", err)
	}
	return h, nil
}

// roleName is best effort: a missing role yields "".
func (s *AuthService) roleName(ctx context.Context, roleID uint64) string {
	if roleID == 0 {
		return ""
	}
	r, err := s.Roles.GetByID(ctx, roleID)
	if err != nil {
		return ""
	}
	return r.Name
}

func invalidCredentials(detail string) *AppError {
	return newErr(KindAuthentication, CodeInvalidCredentials, "Invalid credentials", errors.New(detail))
}

// userWriteError maps a unique-key violation from the credential store onto
// a conflict naming the field.
func userWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return Conflict("email already exists")
	case errors.Is(err, repository.ErrUsernameExists):
		return Conflict("username already exists")
	case errors.Is(err, repository.ErrConflict):
		return Conflict("email or username already exists")
	}
	return Internal(msg, err)
}
