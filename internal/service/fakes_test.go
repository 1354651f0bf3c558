package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
	q "github.com/iliyamo/tts-access-api/internal/queue"
	"github.com/iliyamo/tts-access-api/internal/repository"
	"github.com/iliyamo/tts-access-api/internal/utils"
)

// memUsers mimics the MySQL credential store, unique keys included.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
		if x.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) find(pred func(*model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if pred(m.byID[id]) {
			return *m.byID[id], nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) FindByEmailOrUsername(_ context.Context, email, username string) (model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email || u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) update(id uint64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, id uint64) error {
	return m.update(id, func(u *model.User) { u.IsVerified, u.VerificationToken = true, "" })
}

func (m *memUsers) SetVerificationToken(_ context.Context, id uint64, code string) error {
	return m.update(id, func(u *model.User) { u.VerificationToken = code })
}

func (m *memUsers) UpdatePasswordByEmail(_ context.Context, email, hash string) (int64, error) {
	u, err := m.GetByEmail(context.Background(), email)
	if err != nil {
		return 0, nil
	}
	return 1, m.update(u.ID, func(u *model.User) { u.PasswordHash = hash })
}

func (m *memUsers) EmailTakenByOther(_ context.Context, email string, id uint64) (bool, error) {
	u, err := m.GetByEmail(context.Background(), email)
	return err == nil && u.ID != id, nil
}

func (m *memUsers) ApplyProfilePatch(_ context.Context, id uint64, p model.ProfilePatch) error {
	return m.update(id, func(u *model.User) {
		if p.FirstName.Set {
			u.FirstName = p.FirstName.Value
		}
		if p.LastName.Set {
			u.LastName = p.LastName.Value
		}
		if p.Email.Set {
			u.Email = p.Email.Value
		}
		if p.ProfilePicture.Set {
			u.ProfilePicture = p.ProfilePicture.Value
		}
		if p.IsVerified.Set {
			u.IsVerified = p.IsVerified.Value
		}
	})
}

func (m *memUsers) SetRole(_ context.Context, id, roleID uint64) error {
	return m.update(id, func(u *model.User) { u.RoleID = roleID })
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) ListExcludingRole(_ context.Context, excluded uint64) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.byID {
		if u.RoleID == 0 || u.RoleID != excluded {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memRoles holds the seeded role graph.
type memRoles struct {
	roles []model.Role
}

func seededRoles() *memRoles {
	return &memRoles{roles: []model.Role{
		{ID: 1, Name: "user", Permissions: []string{"comment", "edit_own_profile", "read_posts"}},
		{ID: 2, Name: "writer", Permissions: []string{"comment", "create_posts", "edit_own_posts", "read_posts"}},
		{ID: 3, Name: "admin", Permissions: []string{"delete_users", "manage_roles", "manage_users", "view_users"}},
		{ID: 4, Name: "superadmin", Permissions: []string{"delete_users", "manage_roles", "manage_users", "view_users"}},
		{ID: 5, Name: "empty", Permissions: []string{}},
	}}
}

func (m *memRoles) GetByName(_ context.Context, name string) (model.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return model.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return model.Role{}, repository.ErrNotFound
}

func (m *memRoles) GetByID(_ context.Context, id uint64) (model.Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return model.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return model.Role{}, repository.ErrNotFound
}

func (m *memRoles) PermissionNames(_ context.Context, id uint64) ([]string, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return append([]string{}, r.Permissions...), nil
		}
	}
	return []string{}, nil
}

func (m *memRoles) List(context.Context) ([]model.Role, error) { return m.roles, nil }

// memOtps keeps codes in insertion order.
type memOtps struct {
	mu   sync.Mutex
	rows []model.Otp
}

func (m *memOtps) Create(_ context.Context, email, code string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, model.Otp{ID: uint64(len(m.rows) + 1), Email: email, Code: code, CreatedAt: at})
	return nil
}

func (m *memOtps) LatestMatch(_ context.Context, email, code string) (model.Otp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Email == email && m.rows[i].Code == code {
			return m.rows[i], nil
		}
	}
	return model.Otp{}, repository.ErrNotFound
}

func (m *memOtps) DeleteByEmail(_ context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, o := range m.rows {
		if o.Email == email {
			n++
			continue
		}
		kept = append(kept, o)
	}
	m.rows = kept
	return n, nil
}

func (m *memOtps) forEmail(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.rows {
		if o.Email == email {
			n++
		}
	}
	return n
}

type ticketRow struct {
	email, hash string
	exp         time.Time
	used        bool
}

type memTickets struct {
	rows []*ticketRow
}

func (m *memTickets) Store(_ context.Context, email, hash string, exp time.Time) error {
	m.rows = append(m.rows, &ticketRow{email: email, hash: hash, exp: exp})
	return nil
}

func (m *memTickets) Consume(_ context.Context, email, hash string, now time.Time) error {
	for _, r := range m.rows {
		if r.email == email && r.hash == hash && !r.used && r.exp.After(now) {
			r.used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memTickets) RevokeAllForEmail(_ context.Context, email string, _ time.Time) error {
	for _, r := range m.rows {
		if r.email == email {
			r.used = true
		}
	}
	return nil
}

type sentMail struct{ to, subject, body string }

type memMailer struct {
	sent []sentMail
	err  error
}

func (m *memMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type memStatus struct {
	m map[string]model.TTSStatus
}

func (s *memStatus) Put(_ context.Context, st model.TTSStatus) error {
	if s.m == nil {
		s.m = map[string]model.TTSStatus{}
	}
	s.m[st.TaskID] = st
	return nil
}

func (s *memStatus) Get(_ context.Context, id string) (model.TTSStatus, error) {
	st, ok := s.m[id]
	if !ok {
		return model.TTSStatus{}, repository.ErrNotFound
	}
	return st, nil
}

type memPublisher struct {
	got []q.TTSTaskEvent
	err error
}

func (p *memPublisher) PublishTask(_ context.Context, ev q.TTSTaskEvent) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, ev)
	return nil
}

// authFixture wires an AuthService over in-memory stores with a settable
// clock and a predictable code sequence.
type authFixture struct {
	svc     *AuthService
	users   *memUsers
	roles   *memRoles
	otps    *memOtps
	tickets *memTickets
	mail    *memMailer
	clock   time.Time
	codes   []string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   newMemUsers(),
		roles:   seededRoles(),
		otps:    &memOtps{},
		tickets: &memTickets{},
		mail:    &memMailer{},
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.roles, f.otps, f.tickets,
		utils.NewTokenIssuer("test-secret", 7*24*time.Hour), f.mail, zap.NewNop(),
		AuthConfig{
			BcryptCost:            4,
			OTPTTL:                10 * time.Minute,
			DefaultRole:           "user",
			DefaultProfilePicture: "https://example.com/default-profile.jpg",
			ResetTicketTTL:        15 * time.Minute,
		})
	f.svc.now = func() time.Time { return f.clock }
	f.svc.newCode = func() (string, error) {
		if len(f.codes) == 0 {
			return utils.GenerateOTP()
		}
		c := f.codes[0]
		f.codes = f.codes[1:]
		return c, nil
	}
	return f
}

func (f *authFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func aliceInput() RegisterInput {
	return RegisterInput{FirstName: "Alice", LastName: "Liddell", Username: "alice", Email: "alice@x.com", Password: "pw123456"}
}
