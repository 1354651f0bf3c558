package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/middleware"
	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/response"
)

// Admin is implemented by service.AdminService.
type Admin interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	AssignRole(ctx context.Context, userID uint64, roleName string) (model.Role, error)
	DeleteUser(ctx context.Context, actorID, targetID uint64) error
	ListRoles(ctx context.Context) ([]model.Role, error)
}

// AdminHandler serves /api/admin.  Every route sits behind a permission gate.
type AdminHandler struct {
	Admin Admin
	W     response.Writer
}

func NewAdminHandler(a Admin, w response.Writer) *AdminHandler {
	return &AdminHandler{Admin: a, W: w}
}

type adminUserView struct {
	ID             uint64 `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	IsVerified     bool   `json:"isVerified"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role"`
}

type roleView struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type assignRoleReq struct {
	UserID uint64 `json:"userId"`
	Role   string `json:"role"`
}

// ViewUsers: GET /api/admin/view_users
func (h *AdminHandler) ViewUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Admin.ListUsers(ctx)
	if err != nil {
		return h.W.Err(c, err)
	}
	out := make([]adminUserView, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserView{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
			Email: u.Email, IsVerified: u.IsVerified, ProfilePicture: u.ProfilePicture, Role: u.RoleName,
		})
	}
	return h.W.OK(c, http.StatusOK, "Action performed successfully", echo.Map{"users": out})
}

// AssignRole: PUT /api/admin/assign-role
func (h *AdminHandler) AssignRole(c echo.Context) error {
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return h.W.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Admin.AssignRole(ctx, req.UserID, req.Role)
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Role updated successfully", echo.Map{
		"user": echo.Map{"id": req.UserID, "role": role.Name, "permissions": role.Permissions},
	})
}

// DeleteUser: DELETE /api/admin/delete-user/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	target, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || target == 0 {
		return h.W.Fail(c, http.StatusBadRequest, "Invalid user id", "id must be a positive integer")
	}
	var actor uint64
	if u, ok := middleware.CurrentUser(c); ok {
		actor = u.ID
	} else if id := middleware.IdentityFrom(c); id != nil {
		actor = id.UserID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.DeleteUser(ctx, actor, target); err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "User deleted successfully.", nil)
}

// ListRoles: GET /api/admin/roles
func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Admin.ListRoles(ctx)
	if err != nil {
		return h.W.Err(c, err)
	}
	out := make([]roleView, 0, len(roles))
	for _, r := range roles {
		perms := r.Permissions
		if perms == nil {
			perms = []string{}
		}
		out = append(out, roleView{ID: r.ID, Name: r.Name, Permissions: perms})
	}
	return h.W.OK(c, http.StatusOK, "Roles retrieved successfully", echo.Map{"roles": out})
}
