package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tts-access-api/internal/middleware"
	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
)

// Profiles is implemented by service.ProfileService.
type Profiles interface {
	Get(ctx context.Context, userID uint64) (model.User, error)
	Update(ctx context.Context, userID uint64, p model.ProfilePatch) (model.User, error)
}

// Speech is implemented by service.TTSService.
type Speech interface {
	Submit(ctx context.Context, text string) (string, error)
	Status(ctx context.Context, taskID string) (model.TTSStatus, error)
}

// UserHandler serves the authenticated /api/users endpoints.
type UserHandler struct {
	Profiles Profiles
	Speech   Speech
	W        response.Writer
}

func NewUserHandler(p Profiles, s Speech, w response.Writer) *UserHandler {
	return &UserHandler{Profiles: p, Speech: s, W: w}
}

// profileView omits the password hash, verification code and role.
type profileView struct {
	ID             uint64    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	IsVerified     bool      `json:"isVerified"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toProfileView(u model.User) profileView {
	return profileView{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
		Email: u.Email, IsVerified: u.IsVerified, ProfilePicture: u.ProfilePicture,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

type updateProfileReq struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	ProfileImg string `json:"profileImg"`
}

// patch treats empty fields as absent.
func (r updateProfileReq) patch() model.ProfilePatch {
	var p model.ProfilePatch
	if v := strings.TrimSpace(r.FirstName); v != "" {
		p.FirstName = model.Some(v)
	}
	if v := strings.TrimSpace(r.LastName); v != "" {
		p.LastName = model.Some(v)
	}
	if v := strings.TrimSpace(r.Email); v != "" {
		p.Email = model.Some(v)
	}
	if v := strings.TrimSpace(r.ProfileImg); v != "" {
		p.ProfilePicture = model.Some(v)
	}
	return p
}

func (h *UserHandler) caller(c echo.Context) (uint64, error) {
	id := middleware.IdentityFrom(c)
	if id == nil || id.UserID == 0 {
		return 0, service.Unauthenticated(service.CodeUnauthenticated, "Authentication required")
	}
	return id.UserID, nil
}

// GetProfile: GET /api/users/profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := h.caller(c)
	if err != nil {
		return h.W.Err(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Profile retrieved successfully", toProfileView(u))
}

// UpdateProfile: PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := h.caller(c)
	if err != nil {
		return h.W.Err(c, err)
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return h.W.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Profiles.Update(ctx, uid, req.patch())
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Profile updated successfully", toProfileView(u))
}

type ttsReq struct {
	Text string `json:"text"`
}

// TextToSpeech: POST /api/users/text-to-speech
func (h *UserHandler) TextToSpeech(c echo.Context) error {
	var req ttsReq
	if err := c.Bind(&req); err != nil {
		return h.W.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Speech.Submit(ctx, req.Text)
	if err != nil {
		return h.W.Err(c, err)
	}
	return h.W.OK(c, http.StatusOK, "Task queued", echo.Map{"taskId": id})
}

type ttsStatusView struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	FileURL string `json:"fileUrl,omitempty"`
}

// GetStatus: GET /api/users/get-status/:taskId.  Finished tasks carry an
// absolute fileUrl built from the request's scheme and host.
func (h *UserHandler) GetStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Speech.Status(ctx, c.Param("taskId"))
	if err != nil {
		return h.W.Err(c, err)
	}
	view := ttsStatusView{TaskID: st.TaskID, Status: st.Status}
	if st.Status == model.TTSStatusDone && st.File != "" {
		view.FileURL = c.Scheme() + "://" + c.Request().Host + st.File
	}
	return h.W.OK(c, http.StatusOK, "Task status retrieved", view)
}
