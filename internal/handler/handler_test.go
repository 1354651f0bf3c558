package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tts-access-api/internal/middleware"
	"github.com/iliyamo/tts-access-api/internal/model"
	"github.com/iliyamo/tts-access-api/internal/response"
	"github.com/iliyamo/tts-access-api/internal/service"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

type stubAuth struct {
	registerErr error
	gotReg      service.RegisterInput
	ticket      string
	resetTicket string
}

func (s *stubAuth) Register(_ context.Context, in service.RegisterInput) (model.User, error) {
	s.gotReg = in
	if s.registerErr != nil {
		return model.User{}, s.registerErr
	}
	return model.User{ID: 1, FirstName: in.FirstName, Username: in.Username, Email: in.Email,
		RoleName: "user", PasswordHash: "secret-hash", VerificationToken: "123456"}, nil
}

func (s *stubAuth) VerifyEmail(_ context.Context, email, code string) (model.User, error) {
	if code != "123456" {
		return model.User{}, service.Validation(service.CodeInvalidOTP, "Invalid OTP")
	}
	return model.User{ID: 1, Email: email, IsVerified: true, RoleName: "user"}, nil
}

func (s *stubAuth) ResendOtp(context.Context, string) (string, error) { return "654321", nil }

func (s *stubAuth) Login(_ context.Context, email, password string) (service.LoginResult, error) {
	if password != "pw" {
		return service.LoginResult{}, service.Unauthenticated(service.CodeInvalidCredentials, "Invalid credentials")
	}
	return service.LoginResult{Token: utils.AccessToken{Token: "jwt", Exp: time.Now()},
		User: model.User{ID: 1, Email: email, IsVerified: true}}, nil
}

func (s *stubAuth) ForgotPassword(context.Context, string) error { return nil }

func (s *stubAuth) VerifyOtp(context.Context, string, string) (string, error) { return s.ticket, nil }

func (s *stubAuth) ResetPassword(_ context.Context, _, _, ticket string) error {
	s.resetTicket = ticket
	return nil
}

type result struct {
	code int
	env  response.Envelope
	raw  string
}

func call(t *testing.T, h echo.HandlerFunc, method, path, body string, prep func(echo.Context)) result {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if prep != nil {
		prep(c)
	}
	require.NoError(t, h(c))
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return result{code: rec.Code, env: env, raw: rec.Body.String()}
}

func dataMap(t *testing.T, r result) map[string]any {
	t.Helper()
	m, ok := r.env.Data.(map[string]any)
	require.True(t, ok, "data is %T", r.env.Data)
	return m
}

func TestAuthHandler_Register(t *testing.T) {
	stub := &stubAuth{}
	h := NewAuthHandler(stub, response.Writer{})

	r := call(t, h.Register, http.MethodPost, "/api/auth/register",
		`{"firstName":"Alice","lastName":"L","username":"alice","email":"alice@x.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusCreated, r.code)
	assert.True(t, r.env.IsSuccess)
	assert.Equal(t, "alice", stub.gotReg.Username)
	assert.Equal(t, "user", dataMap(t, r)["role"])
	assert.NotContains(t, r.raw, "secret-hash")
	assert.NotContains(t, r.raw, "123456")

	stub.registerErr = service.Conflict("email already exists")
	r = call(t, h.Register, http.MethodPost, "/api/auth/register", `{}`, nil)
	assert.Equal(t, http.StatusConflict, r.code)
	assert.Equal(t, "email already exists", r.env.Message)

	r = call(t, h.Register, http.MethodPost, "/api/auth/register", `{bad json`, nil)
	assert.Equal(t, http.StatusBadRequest, r.code)
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, response.Writer{})

	r := call(t, h.VerifyEmail, http.MethodPost, "/", `{"email":"a@x.com","otp":"123456"}`, nil)
	assert.Equal(t, http.StatusOK, r.code)
	user := dataMap(t, r)["user"].(map[string]any)
	assert.Equal(t, true, user["isVerified"])

	r = call(t, h.VerifyEmail, http.MethodPost, "/", `{"email":"a@x.com","otp":"000000"}`, nil)
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "Invalid OTP", r.env.Message)
}

func TestAuthHandler_ResendOtpDevOnly(t *testing.T) {
	r := call(t, NewAuthHandler(&stubAuth{}, response.Writer{Dev: true}).ResendOtp, http.MethodPost, "/", `{"email":"a@x.com"}`, nil)
	assert.Equal(t, "654321", dataMap(t, r)["otp"])

	r = call(t, NewAuthHandler(&stubAuth{}, response.Writer{}).ResendOtp, http.MethodPost, "/", `{"email":"a@x.com"}`, nil)
	assert.Empty(t, dataMap(t, r))
}

func TestAuthHandler_Login(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, response.Writer{})

	r := call(t, h.Login, http.MethodPost, "/", `{"email":"a@x.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "jwt", dataMap(t, r)["token"])

	r = call(t, h.Login, http.MethodPost, "/", `{"email":"a@x.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "Invalid credentials", r.env.Message)
}

func TestAuthHandler_ResetFlow(t *testing.T) {
	stub := &stubAuth{ticket: "tkt"}
	h := NewAuthHandler(stub, response.Writer{})

	r := call(t, h.ForgotPassword, http.MethodPost, "/", `{"email":"a@x.com"}`, nil)
	assert.Equal(t, "OTP sent successfully!", r.env.Message)

	r = call(t, h.VerifyOtp, http.MethodPost, "/", `{"email":"a@x.com","otp":"1"}`, nil)
	assert.Equal(t, "tkt", dataMap(t, r)["resetTicket"])

	r = call(t, h.ResetPassword, http.MethodPost, "/", `{"email":"a@x.com","newPassword":"n","resetTicket":"tkt"}`, nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "tkt", stub.resetTicket)
}

type stubProfiles struct {
	got model.ProfilePatch
}

func (s *stubProfiles) Get(_ context.Context, id uint64) (model.User, error) {
	return model.User{ID: id, Username: "alice", PasswordHash: "secret-hash", VerificationToken: "123456", RoleID: 3}, nil
}

func (s *stubProfiles) Update(_ context.Context, id uint64, p model.ProfilePatch) (model.User, error) {
	s.got = p
	return model.User{ID: id, FirstName: p.FirstName.Value}, nil
}

type stubSpeech struct {
	st  model.TTSStatus
	err error
}

func (s *stubSpeech) Submit(context.Context, string) (string, error) { return "task-9", nil }

func (s *stubSpeech) Status(context.Context, string) (model.TTSStatus, error) { return s.st, s.err }

func asUser(id uint64) func(echo.Context) {
	return func(c echo.Context) { middleware.SetIdentity(c, &service.Identity{UserID: id}) }
}

func TestUserHandler_Profile(t *testing.T) {
	prof := &stubProfiles{}
	h := NewUserHandler(prof, &stubSpeech{}, response.Writer{})

	r := call(t, h.GetProfile, http.MethodGet, "/", "", asUser(5))
	assert.Equal(t, http.StatusOK, r.code)
	assert.NotContains(t, r.raw, "secret-hash")
	assert.NotContains(t, r.raw, "123456")
	assert.NotContains(t, r.raw, "role")

	r = call(t, h.GetProfile, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.code)

	r = call(t, h.UpdateProfile, http.MethodPut, "/", `{"firstName":" Al ","email":""}`, asUser(5))
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, model.Some("Al"), prof.got.FirstName)
	assert.False(t, prof.got.Email.Set)
}

func TestUserHandler_TTS(t *testing.T) {
	speech := &stubSpeech{st: model.TTSStatus{TaskID: "t1", Status: model.TTSStatusDone, File: "/audio/t1.wav"}}
	h := NewUserHandler(&stubProfiles{}, speech, response.Writer{})

	r := call(t, h.TextToSpeech, http.MethodPost, "/", `{"text":"hi"}`, asUser(1))
	assert.Equal(t, "task-9", dataMap(t, r)["taskId"])

	r = call(t, h.GetStatus, http.MethodGet, "/", "", nil)
	assert.Equal(t, "http://example.com/audio/t1.wav", dataMap(t, r)["fileUrl"])

	speech.st = model.TTSStatus{TaskID: "t1", Status: model.TTSStatusProcessing}
	r = call(t, h.GetStatus, http.MethodGet, "/", "", nil)
	_, has := dataMap(t, r)["fileUrl"]
	assert.False(t, has)

	speech.err = service.NotFound(service.CodeNotFound, "Task not found")
	r = call(t, h.GetStatus, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusNotFound, r.code)
}

type stubAdmin struct {
	actor, target uint64
}

func (s *stubAdmin) ListUsers(context.Context) ([]model.User, error) {
	return []model.User{{ID: 1, Username: "alice", RoleName: "user", PasswordHash: "secret-hash"}}, nil
}

func (s *stubAdmin) AssignRole(_ context.Context, _ uint64, role string) (model.Role, error) {
	if role != "writer" {
		return model.Role{}, service.Validation(service.CodeInvalidRole, "Invalid role provided")
	}
	return model.Role{ID: 2, Name: "writer", Permissions: []string{"create_posts"}}, nil
}

func (s *stubAdmin) DeleteUser(_ context.Context, actor, target uint64) error {
	s.actor, s.target = actor, target
	if actor == target {
		return service.Validation(service.CodeSelfDeletion, "Super Admin cannot delete themselves.")
	}
	return nil
}

func (s *stubAdmin) ListRoles(context.Context) ([]model.Role, error) {
	return []model.Role{{ID: 1, Name: "user"}}, nil
}

func TestAdminHandler(t *testing.T) {
	stub := &stubAdmin{}
	h := NewAdminHandler(stub, response.Writer{})

	r := call(t, h.ViewUsers, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, r.code)
	assert.NotContains(t, r.raw, "secret-hash")
	assert.Len(t, dataMap(t, r)["users"], 1)

	r = call(t, h.AssignRole, http.MethodPut, "/", `{"userId":7,"role":"pirate"}`, nil)
	assert.Equal(t, http.StatusBadRequest, r.code)
	r = call(t, h.AssignRole, http.MethodPut, "/", `{"userId":7,"role":"writer"}`, nil)
	assert.Equal(t, http.StatusOK, r.code)

	withID := func(id string, actor uint64) func(echo.Context) {
		return func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
			asUser(actor)(c)
		}
	}
	r = call(t, h.DeleteUser, http.MethodDelete, "/", "", withID("abc", 1))
	assert.Equal(t, http.StatusBadRequest, r.code)
	r = call(t, h.DeleteUser, http.MethodDelete, "/", "", withID("4", 4))
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "Super Admin cannot delete themselves.", r.env.Message)
	r = call(t, h.DeleteUser, http.MethodDelete, "/", "", withID("9", 4))
	assert.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, uint64(9), stub.target)

	r = call(t, h.ListRoles, http.MethodGet, "/", "", nil)
	roles := dataMap(t, r)["roles"].([]any)
	require.Len(t, roles, 1)
	assert.Equal(t, []any{}, roles[0].(map[string]any)["permissions"])
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, Health(fakePinger{})(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, Health(fakePinger{err: errors.New("down")})(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
