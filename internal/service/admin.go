package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/repository"
)

// SuperAdminRole is hidden from user listings.
const SuperAdminRole = "superadmin"

// AdminService backs the user-management endpoints.
type AdminService struct {
	Users UserStore
	Roles RoleStore
	Log   *zap.Logger
}

func NewAdminService(users UserStore, roles RoleStore, log *zap.Logger) *AdminService {
	return &AdminService{Users: users, Roles: roles, Log: log}
}

// ListUsers returns every account except those holding the superadmin role.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	var excluded uint64
	r, err := s.Roles.GetByName(ctx, SuperAdminRole)
	switch {
	case err == nil:
		excluded = r.ID
	case !errors.Is(err, repository.ErrNotFound):
		return nil, Internal("Server Error", err)
	}
	users, err := s.Users.ListExcludingRole(ctx, excluded)
	if err != nil {
		return nil, Internal("Server Error", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// AssignRole points userID at the role called roleName and returns the
// role with its permissions.
func (s *AdminService) AssignRole(ctx context.Context, userID uint64, roleName string) (model.Role, error) {
	if userID == 0 || roleName == "" {
		return model.Role{}, Validation(CodeValidation, "userId and role are required")
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Role{}, NotFound(CodeUserNotFound, "User not found")
		}
		return model.Role{}, Internal("Server error", err)
	}
	role, err := s.Roles.GetByName(ctx, roleName)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Role{}, Validation(CodeInvalidRole, "Invalid role provided")
	}
	if err != nil {
		return model.Role{}, Internal("Server error", err)
	}
	if err := s.Users.SetRole(ctx, userID, role.ID); err != nil {
		return model.Role{}, Internal("Server error", err)
	}
	perms, err := s.Roles.PermissionNames(ctx, role.ID)
	if err != nil {
		return model.Role{}, Internal("Server error", err)
	}
	role.Permissions = perms
	s.Log.Info("role assigned", zap.Uint64("user_id", userID), zap.String("role", role.Name))
	return role, nil
}

// DeleteUser removes targetID.  An admin can not delete their own account.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, targetID uint64) error {
	if _, err := s.Users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(CodeUserNotFound, "User not found.")
		}
		return Internal("Server Error", err)
	}
	if actorID == targetID {
		return Validation(CodeSelfDeletion, "Super Admin cannot delete themselves.")
	}
	if err := s.Users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(CodeUserNotFound, "User not found.")
		}
		return Internal("Server Error", err)
	}
	s.Log.Info("user deleted", zap.Uint64("user_id", targetID), zap.Uint64("by", actorID))
	return nil
}

// ListRoles returns every role with its permission names.
func (s *AdminService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.Roles.List(ctx)
	if err != nil {
		return nil, Internal("Server Error", err)
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return roles, nil
}
