package model

import "time"

// User represents an account row in the `users` table.  Repositories scan
// into this type; handlers build their own response shapes so that the
// password hash and verification code never leave the service.
//
// Fields:
//
//	ID                – primary key identifier.
//	FirstName/LastName – display names, trimmed on write.
//	Username          – unique handle.
//	Email             – unique, stored lower-cased.
//	PasswordHash      – bcrypt hash; plaintext is never persisted.
//	RoleID            – FK into roles; zero when no role is assigned.
//	IsVerified        – set once the email OTP has been confirmed.
//	VerificationToken – outstanding 6-digit code, empty once verified.
//	ProfilePicture    – avatar URL, defaults to a placeholder.
type User struct {
	ID                uint64
	FirstName         string
	LastName          string
	Username          string
	Email             string
	PasswordHash      string
	RoleID            uint64
	IsVerified        bool
	VerificationToken string
	ProfilePicture    string
	RoleName          string // populated by listing joins only
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasRole reports whether the user references a role at all.
func (u User) HasRole() bool { return u.RoleID != 0 }

// Role is a named bundle of permissions (`roles` joined through
// `role_permissions`).  Permissions is only populated by listing queries.
type Role struct {
	ID          uint64
	Name        string
	Permissions []string
}

// Otp is a one-time code issued to an email address.  Several may be
// outstanding for the same address; expiry is checked against CreatedAt
// when the code is presented.
type Otp struct {
	ID        uint64
	Email     string
	Code      string
	CreatedAt time.Time
}

// Age returns how long ago the code was issued relative to now.
func (o Otp) Age(now time.Time) time.Duration { return now.Sub(o.CreatedAt) }
