package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/repository"
)

// ProfileService reads and patches the caller's own account.
type ProfileService struct {
	Users UserStore
}

func NewProfileService(users UserStore) *ProfileService { return &ProfileService{Users: users} }

func (s *ProfileService) Get(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, NotFound(CodeUserNotFound, "User not found")
	}
	if err != nil {
		return model.User{}, Internal("Failed to retrieve profile", err)
	}
	return u, nil
}

// Update applies p to the account.  Changing the email address clears the
// verified flag; resubmitting the current address changes nothing.
func (s *ProfileService) Update(ctx context.Context, userID uint64, p model.ProfilePatch) (model.User, error) {
	cur, err := s.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if p.Empty() {
		return model.User{}, Validation(CodeValidation, "No data provided for update")
	}
	p.IsVerified = model.Optional[bool]{}

	if p.FirstName.Set {
		p.FirstName.Value = strings.TrimSpace(p.FirstName.Value)
	}
	if p.LastName.Set {
		p.LastName.Value = strings.TrimSpace(p.LastName.Value)
	}
	if p.Email.Set {
		email := normalizeEmail(p.Email.Value)
		if !ValidEmail(email) {
			return model.User{}, Validation(CodeValidation, "Invalid email format")
		}
		if email == strings.ToLower(cur.Email) {
			p.Email = model.Optional[string]{}
		} else {
			taken, err := s.Users.EmailTakenByOther(ctx, email, userID)
			if err != nil {
				return model.User{}, Internal("Failed to update profile", err)
			}
			if taken {
				return model.User{}, Conflict("Email already exists")
			}
			p.Email = model.Some(email)
			p.IsVerified = model.Some(false)
		}
	}

	if err := s.Users.ApplyProfilePatch(ctx, userID, p); err != nil {
		return model.User{}, userWriteError(err, "Failed to update profile")
	}
	return s.Get(ctx, userID)
}
