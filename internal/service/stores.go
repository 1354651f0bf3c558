package service

import (
	"context"
	"time"

	"github.com/iliyamo/tts-access-api/internal/model"
)

// The interfaces below are the narrow views of the repositories each
// service needs.  The MySQL and Redis repositories satisfy them; tests use
// in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmailOrUsername(ctx context.Context, email, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	MarkVerified(ctx context.Context, id uint64) error
	SetVerificationToken(ctx context.Context, id uint64, code string) error
	UpdatePasswordByEmail(ctx context.Context, email, hash string) (int64, error)
	EmailTakenByOther(ctx context.Context, email string, id uint64) (bool, error)
	ApplyProfilePatch(ctx context.Context, id uint64, p model.ProfilePatch) error
	SetRole(ctx context.Context, id, roleID uint64) error
	Delete(ctx context.Context, id uint64) error
	ListExcludingRole(ctx context.Context, excludedRoleID uint64) ([]model.User, error)
}

type RoleStore interface {
	GetByName(ctx context.Context, name string) (model.Role, error)
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	PermissionNames(ctx context.Context, roleID uint64) ([]string, error)
	List(ctx context.Context) ([]model.Role, error)
}

type OtpStore interface {
	Create(ctx context.Context, email, code string, createdAt time.Time) error
	LatestMatch(ctx context.Context, email, code string) (model.Otp, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

type TicketStore interface {
	Store(ctx context.Context, email, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, email, tokenHash string, now time.Time) error
	RevokeAllForEmail(ctx context.Context, email string, now time.Time) error
}

type StatusStore interface {
	Put(ctx context.Context, st model.TTSStatus) error
	Get(ctx context.Context, taskID string) (model.TTSStatus, error)
}
