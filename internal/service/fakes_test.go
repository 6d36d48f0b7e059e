package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/donation-identity/internal/limiter"
	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/notify"
	"github.com/iliyamo/donation-identity/internal/repository"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// memUsers is an in-memory UserStore with the same uniqueness and OTP
// semantics as the MySQL repository. CreateFn overrides Create when set.
type memUsers struct {
	mu       sync.Mutex
	rows     map[uint64]model.User
	next     uint64
	CreateFn func(ctx context.Context, u *model.User) (uint64, error)
}

func newMemUsers() *memUsers { return &memUsers{rows: map[uint64]model.User{}} }

func (m *memUsers) Create(ctx context.Context, u *model.User) (uint64, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		switch {
		case same(r.Email, u.Email):
			return 0, repository.ErrEmailExists
		case same(r.PhoneNumber, u.PhoneNumber):
			return 0, repository.ErrPhoneExists
		case same(r.NationalID, u.NationalID):
			return 0, repository.ErrNationalIDExists
		}
	}
	m.next++
	row := *u
	row.ID = m.next
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *memUsers) find(match func(model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			return r, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Email != nil && *u.Email == email })
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.PhoneNumber != nil && *u.PhoneNumber == phone })
}

func (m *memUsers) GetByNationalID(_ context.Context, nid string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.NationalID != nil && *u.NationalID == nid })
}

func (m *memUsers) SetOTP(_ context.Context, id uint64, code string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.OTP, u.OTPExpiry = &code, &expiry
	m.rows[id] = u
	return nil
}

func (m *memUsers) consume(id uint64, code string, now time.Time) bool {
	u, ok := m.rows[id]
	if !ok || u.OTP == nil || u.OTPExpiry == nil || *u.OTP != code || !now.Before(*u.OTPExpiry) {
		return false
	}
	u.OTP, u.OTPExpiry = nil, nil
	m.rows[id] = u
	return true
}

func (m *memUsers) ConsumeOTP(_ context.Context, id uint64, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consume(id, code, now), nil
}

func (m *memUsers) ResetPasswordWithOTP(_ context.Context, id uint64, code, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.consume(id, code, now) {
		return false, nil
	}
	u := m.rows[id]
	u.PasswordHash = hash
	m.rows[id] = u
	return true, nil
}

func (m *memUsers) ApproveIfPending(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	if u.Status != model.StatusPending {
		return false, nil
	}
	u.Status = model.StatusApproved
	m.rows[id] = u
	return true, nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.Status = status
	m.rows[id] = u
	return nil
}

// put stores u as-is and returns its id.
func (m *memUsers) put(u model.User) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = m.next
	m.rows[u.ID] = u
	return u.ID
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memStudents struct {
	mu   sync.Mutex
	rows map[uint64]model.Student
	next uint64
}

func newMemStudents() *memStudents { return &memStudents{rows: map[uint64]model.Student{}} }

func (m *memStudents) Create(_ context.Context, s *model.Student) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if same(r.Email, s.Email) {
			return 0, repository.ErrEmailExists
		}
	}
	m.next++
	row := *s
	row.ID = m.next
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *memStudents) find(match func(model.Student) bool) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			return r, nil
		}
	}
	return model.Student{}, repository.ErrNotFound
}

func (m *memStudents) GetByID(_ context.Context, id uint64) (model.Student, error) {
	return m.find(func(s model.Student) bool { return s.ID == id })
}

func (m *memStudents) GetByEmail(_ context.Context, email string) (model.Student, error) {
	return m.find(func(s model.Student) bool { return s.Email != nil && *s.Email == email })
}

func (m *memStudents) GetByPhone(_ context.Context, phone string) (model.Student, error) {
	return m.find(func(s model.Student) bool { return s.PhoneNumber != nil && *s.PhoneNumber == phone })
}

func (m *memStudents) GetByNationalID(_ context.Context, nid string) (model.Student, error) {
	return m.find(func(s model.Student) bool { return s.NationalID != nil && *s.NationalID == nid })
}

func (m *memStudents) put(s model.Student) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = m.next
	m.rows[s.ID] = s
	return s.ID
}

// recordingQueue captures enqueued deliveries.
type recordingQueue struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, m notify.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, m)
	return nil
}

func (q *recordingQueue) last() (notify.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return notify.Message{}, false
	}
	return q.msgs[len(q.msgs)-1], true
}

// fixture wires an Identity over in-memory stores and a controllable clock.
type fixture struct {
	users    *memUsers
	students *memStudents
	queue    *recordingQueue
	limiter  *limiter.Memory
	sessions *utils.SessionIssuer
	otp      *OTPEngine
	identity *Identity
	now      time.Time
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMemUsers(),
		students: newMemStudents(),
		queue:    &recordingQueue{},
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.limiter = limiter.NewMemory().WithClock(clock)
	f.sessions = utils.NewSessionIssuer("test-secret").WithClock(clock)
	f.otp = NewOTPEngine(f.users, f.queue, quietLogger())
	f.otp.now = clock
	f.identity = NewIdentity(IdentityDeps{
		Users:    f.users,
		Students: f.students,
		Limiter:  f.limiter,
		Hasher:   utils.NewHasher(bcrypt.MinCost),
		Sessions: f.sessions,
		OTP:      f.otp,
		Logger:   quietLogger(),
	})
	return f
}

func hashed(plain string) string {
	h, err := utils.HashPassword(plain, bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

func sp(s string) *string { return &s }

func same(a, b *string) bool { return a != nil && b != nil && *a == *b }
