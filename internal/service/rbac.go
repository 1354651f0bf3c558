package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/repository"
)

var (
	// ErrNoRoleAssigned is returned for a zero role id.
	ErrNoRoleAssigned = errors.New("no role assigned")
	// ErrRoleNotFound is returned when the role id references no row.
	ErrRoleNotFound = errors.New("role not found")
)

// PermissionSet is the effective set of permission names of a role.
type PermissionSet map[string]struct{}

func NewPermissionSet(names ...string) PermissionSet {
	s := make(PermissionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Names returns the members sorted.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasPermission reports whether required is a member of set.
func HasPermission(set PermissionSet, required string) bool {
	_, ok := set[required]
	return ok
}

// RBAC resolves roles to permission sets.  The set is exactly the
// permissions linked to the role; there is no inheritance.
type RBAC struct {
	Roles RoleReader
}

// RoleReader is the part of the role store the gate needs.
type RoleReader interface {
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	PermissionNames(ctx context.Context, roleID uint64) ([]string, error)
}

// UserLookup is the part of the credential store the gate needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

func NewRBAC(roles RoleReader) *RBAC { return &RBAC{Roles: roles} }

func (r *RBAC) ResolvePermissions(ctx context.Context, roleID uint64) (PermissionSet, error) {
	if roleID == 0 {
		return nil, ErrNoRoleAssigned
	}
	if _, err := r.Roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	names, err := r.Roles.PermissionNames(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(names...), nil
}

// Identity is what a verified bearer token says about the caller.
type Identity struct {
	UserID uint64
	Email  string
	RoleID uint64
}

// Authorizer is the permission gate.  It always checks the role currently
// stored on the user, not the one captured in the token.
type Authorizer struct {
	Users UserLookup
	RBAC  *RBAC
	Log   *zap.Logger
}

func NewAuthorizer(users UserLookup, rbac *RBAC, log *zap.Logger) *Authorizer {
	return &Authorizer{Users: users, RBAC: rbac, Log: log}
}

// Authorize returns the caller's user record when it holds required.
func (a *Authorizer) Authorize(ctx context.Context, id *Identity, required string) (model.User, error) {
	if id == nil || id.UserID == 0 {
		return model.User{}, Forbidden(CodeNoUser, "Access denied. No user found.")
	}
	u, err := a.Users.GetByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, Forbidden(CodeUserNotFound, "Access denied. User not found.")
	}
	if err != nil {
		return model.User{}, Internal("Server error", err)
	}
	if !u.HasRole() {
		return model.User{}, Forbidden(CodeNoRole, "Access denied. No role assigned.")
	}
	perms, err := a.RBAC.ResolvePermissions(ctx, u.RoleID)
	switch {
	case errors.Is(err, ErrNoRoleAssigned), errors.Is(err, ErrRoleNotFound):
		return model.User{}, Forbidden(CodeNoRole, "Access denied. No role assigned.")
	case err != nil:
		return model.User{}, Internal("Server error", err)
	}
	if !HasPermission(perms, required) {
		a.Log.Info("permission denied",
			zap.Uint64("user_id", u.ID), zap.Uint64("role_id", u.RoleID), zap.String("required", required))
		return model.User{}, Forbidden(CodeInsufficientPermission, "Access denied. Insufficient permissions.")
	}
	return u, nil
}
