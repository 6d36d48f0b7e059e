// Package service holds the identity core: credential login across the
// users and students tables, registration, OTP flows and the Google
// bridge. Handlers translate its sentinel errors into HTTP responses.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/donation-identity/internal/limiter"
	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/notify"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// PasswordHasher hashes and checks passwords. utils.Hasher satisfies it.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// IdentityDeps bundles the collaborators of Identity.
type IdentityDeps struct {
	Users    UserStore
	Students StudentStore
	Limiter  limiter.Limiter
	Hasher   PasswordHasher
	Sessions SessionMinter
	OTP      *OTPEngine
	Logger   *log.Logger
}

// Identity resolves principals and runs every credential flow.
type Identity struct {
	users    UserStore
	students StudentStore
	limiter  limiter.Limiter
	hasher   PasswordHasher
	sessions SessionMinter
	otp      *OTPEngine
	registry Registry
	logger   *log.Logger
}

func NewIdentity(d IdentityDeps) *Identity {
	return &Identity{
		users:    d.Users,
		students: d.Students,
		limiter:  d.Limiter,
		hasher:   d.Hasher,
		sessions: d.Sessions,
		otp:      d.OTP,
		registry: NewRegistry(d.Users, d.Students),
		logger:   d.Logger,
	}
}

// Registry exposes the cross-table uniqueness check for other flows.
func (s *Identity) Registry() Registry { return s.registry }

// Login authenticates identifier (email or phone) and password against
// users first and students second. Unknown identifier, missing hash and
// wrong password all return ErrInvalidCredentials.
func (s *Identity) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = utils.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return Session{}, invalid("identifier and password are required")
	}
	if err := s.gate(ctx, identifier); err != nil {
		return Session{}, err
	}

	p, err := s.resolve(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	hash := p.PasswordHash()
	if hash == "" || !s.hasher.Verify(hash, password) {
		return Session{}, ErrInvalidCredentials
	}

	s.clear(ctx, identifier)
	s.logger.Debugf("login accepted for %s %d", p.Kind, p.ID())
	return s.issue(p)
}

// resolve looks identifier up in users and then students. An identifier
// containing "@" is an email, anything else a phone number.
func (s *Identity) resolve(ctx context.Context, identifier string) (model.Principal, error) {
	email := utils.IsEmail(identifier)

	var u model.User
	var err error
	if email {
		u, err = s.users.GetByEmail(ctx, identifier)
	} else {
		u, err = s.users.GetByPhone(ctx, identifier)
	}
	if err == nil {
		return model.UserPrincipal(u), nil
	}
	if err = fromStore(err); !errors.Is(err, ErrNotFound) {
		return model.Principal{}, err
	}

	var st model.Student
	if email {
		st, err = s.students.GetByEmail(ctx, identifier)
	} else {
		st, err = s.students.GetByPhone(ctx, identifier)
	}
	if err != nil {
		return model.Principal{}, fromStore(err)
	}
	return model.StudentPrincipal(st), nil
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Name        string
	FamilyName  string
	Email       string
	PhoneNumber string
	Password    string
	Role        string
	NationalID  string
	BirthDate   *time.Time
	City        string
	Region      string
	FatherName  string
	Location    string
}

// Register creates a principal. STUDENT goes to the students table with no
// challenge; every other role becomes a PENDING user and is sent an OTP.
// It returns the new row's id.
func (s *Identity) Register(ctx context.Context, in RegisterInput) (uint64, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return 0, invalid("name is required")
	case !model.ValidRole(in.Role):
		return 0, invalid("role must be one of ADMIN, AMBASSADOR, DONOR, STUDENT")
	case in.Email == "" && in.PhoneNumber == "":
		return 0, invalid("email or phoneNumber is required")
	case in.PhoneNumber != "" && !utils.ValidPhone(in.PhoneNumber):
		return 0, invalid("phoneNumber is malformed")
	case in.NationalID != "" && !utils.ValidNationalID(in.NationalID):
		return 0, invalid("nationalId is malformed")
	case in.Password == "":
		return 0, invalid("password is required")
	}

	if err := s.registry.EnsureAvailable(ctx, in.Email, in.PhoneNumber, in.NationalID); err != nil {
		return 0, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, err
	}

	if in.Role == model.RoleStudent {
		st := model.Student{
			Name:         in.Name,
			FatherName:   opt(in.FatherName),
			Email:        opt(in.Email),
			PhoneNumber:  opt(in.PhoneNumber),
			PasswordHash: &hash,
			NationalID:   opt(in.NationalID),
			BirthDate:    in.BirthDate,
			City:         opt(in.City),
			Region:       opt(in.Region),
			Location:     opt(in.Location),
		}
		id, err := s.students.Create(ctx, &st)
		if err != nil {
			return 0, fromStore(err)
		}
		s.logger.Infof("student %d registered", id)
		return id, nil
	}

	u := model.User{
		Name:         in.Name,
		FamilyName:   opt(in.FamilyName),
		Email:        opt(in.Email),
		PhoneNumber:  opt(in.PhoneNumber),
		PasswordHash: hash,
		Role:         in.Role,
		Status:       model.StatusPending,
		NationalID:   opt(in.NationalID),
		BirthDate:    in.BirthDate,
		City:         opt(in.City),
		Region:       opt(in.Region),
	}
	id, err := s.users.Create(ctx, &u)
	if err != nil {
		return 0, fromStore(err)
	}
	u.ID = id
	s.logger.Infof("user %d registered as %s", id, u.Role)

	// The row exists; a failed challenge is recoverable through the
	// phone-login or forgot-password flows, so registration still succeeds.
	if err := s.otp.Issue(ctx, u, notify.PurposeRegistration, ""); err != nil {
		s.logger.Errorf("issue registration code for user %d: %v", id, err)
	}
	return id, nil
}

// VerifyEmailOTP consumes the registration challenge of the user owning
// email. It does not change the user's status.
func (s *Identity) VerifyEmailOTP(ctx context.Context, email, code string) error {
	email = utils.NormalizeEmail(email)
	if err := s.gate(ctx, email); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return otpLookup(err)
	}
	if err := s.otp.Verify(ctx, u, code); err != nil {
		return err
	}
	s.clear(ctx, email)
	return nil
}

// RequestPhoneOTP sends a login code to the user owning phone.
func (s *Identity) RequestPhoneOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return fromStore(err)
	}
	return s.otp.Issue(ctx, u, notify.PurposePhoneLogin, notify.ChannelSMS)
}

// VerifyPhoneOTP consumes the phone-login challenge, promotes a PENDING
// user to APPROVED and issues a session.
func (s *Identity) VerifyPhoneOTP(ctx context.Context, phone, code string) (Session, error) {
	phone = strings.TrimSpace(phone)
	if err := s.gate(ctx, phone); err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return Session{}, otpLookup(err)
	}
	if err := s.otp.Verify(ctx, u, code); err != nil {
		return Session{}, err
	}
	promoted, err := s.users.ApproveIfPending(ctx, u.ID)
	if err != nil {
		return Session{}, err
	}
	if promoted {
		u.Status = model.StatusApproved
		s.logger.Infof("user %d approved by phone verification", u.ID)
	}
	u.OTP, u.OTPExpiry = nil, nil

	s.clear(ctx, phone)
	return s.issue(model.UserPrincipal(u))
}

// ForgotPassword emails a reset code to the user owning email.
func (s *Identity) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return fromStore(err)
	}
	return s.otp.Issue(ctx, u, notify.PurposePasswordReset, notify.ChannelEmail)
}

// ResetPassword replaces the password when code is the user's current,
// unexpired challenge. The challenge is consumed in the same write.
func (s *Identity) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = utils.NormalizeEmail(email)
	if newPassword == "" {
		return invalid("newPassword is required")
	}
	if err := s.gate(ctx, email); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return otpLookup(err)
	}
	if !utils.OTPMatches(u.OTP, u.OTPExpiry, code, s.otp.now().UTC()) {
		return ErrInvalidOrExpiredOTP
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.users.ResetPasswordWithOTP(ctx, u.ID, code, hash, s.otp.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}
	s.clear(ctx, email)
	s.logger.Infof("user %d reset password", u.ID)
	return nil
}

// GetUser fetches a users row for administrators.
func (s *Identity) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, fromStore(err)
}

// SetStatus approves or rejects a user.
func (s *Identity) SetStatus(ctx context.Context, id uint64, status string) (model.User, error) {
	if status != model.StatusApproved && status != model.StatusRejected {
		return model.User{}, invalid("status must be APPROVED or REJECTED")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fromStore(err)
	}
	if err := s.users.UpdateStatus(ctx, id, status); err != nil {
		return model.User{}, err
	}
	s.logger.Infof("user %d status %s -> %s", id, u.Status, status)
	u.Status = status
	return u, nil
}

// Standing is the current role and status of a token's subject.
type Standing struct {
	Role   string
	Status string
}

// CurrentStanding re-reads the subject of a token. Students have no status
// column and are reported APPROVED.
func (s *Identity) CurrentStanding(ctx context.Context, id uint64, role string) (Standing, error) {
	if role == model.RoleStudent {
		if _, err := s.students.GetByID(ctx, id); err != nil {
			return Standing{}, fromStore(err)
		}
		return Standing{Role: model.RoleStudent, Status: model.StatusApproved}, nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Standing{}, fromStore(err)
	}
	return Standing{Role: u.Role, Status: u.Status}, nil
}

func (s *Identity) issue(p model.Principal) (Session, error) {
	tok, err := s.sessions.Issue(p.ID(), p.Role())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok.Token, ExpiresAt: tok.Exp, Principal: p}, nil
}

// gate consults the limiter. A limiter backend failure is logged and the
// attempt is let through.
func (s *Identity) gate(ctx context.Context, identifier string) error {
	err := s.limiter.Check(ctx, identifier)
	if errors.Is(err, limiter.ErrLimited) {
		return ErrRateLimited
	}
	if err != nil {
		s.logger.Warnf("rate limiter unavailable: %v", err)
	}
	return nil
}

func (s *Identity) clear(ctx context.Context, identifier string) {
	if err := s.limiter.Clear(ctx, identifier); err != nil {
		s.logger.Warnf("rate limiter clear: %v", err)
	}
}

// otpLookup hides whether the account exists behind the OTP error.
func otpLookup(err error) error {
	if err = fromStore(err); errors.Is(err, ErrNotFound) {
		return ErrInvalidOrExpiredOTP
	}
	return err
}

func opt(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
