package model

import "time"

// Role names carried by principals and by session tokens.
const (
	RoleAdmin      = "ADMIN"
	RoleAmbassador = "AMBASSADOR"
	RoleDonor      = "DONOR"
	RoleStudent    = "STUDENT"
)

// Account statuses for rows in the users table.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// ValidRole reports whether r is one of the four role literals accepted at
// registration.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleAmbassador, RoleDonor, RoleStudent:
		return true
	}
	return false
}

// User mirrors a row of the `users` table: administrators, ambassadors and
// donors. Nullable columns are pointers so that "absent" and "empty" stay
// distinct all the way to the uniqueness constraints.
//
// Fields:
//
//	Email, PhoneNumber – at least one is set at creation; both unique.
//	PasswordHash       – bcrypt hash; empty for accounts created through OAuth.
//	OTP, OTPExpiry     – outstanding one-time challenge, nil when none.
type User struct {
	ID           uint64     // users.id
	Name         string     // users.name
	FamilyName   *string    // users.family_name
	Email        *string    // users.email
	PhoneNumber  *string    // users.phone_number
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	Status       string     // users.status
	NationalID   *string    // users.national_id
	BirthDate    *time.Time // users.birth_date
	City         *string    // users.city
	Region       *string    // users.region
	OTP          *string    // users.otp
	OTPExpiry    *time.Time // users.otp_expiry
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// EmailOrEmpty returns the user's email or "" when it has none.
func (u User) EmailOrEmpty() string { return deref(u.Email) }

// Student mirrors a row of the `students` table. Students authenticate with
// the implicit STUDENT role and never carry an OTP challenge.
type Student struct {
	ID           uint64
	Name         string
	FatherName   *string
	Email        *string
	PhoneNumber  *string
	PasswordHash *string
	NationalID   *string
	BirthDate    *time.Time
	City         *string
	Region       *string
	Location     *string
	CreatedAt    time.Time
}

// PrincipalKind tags which table a Principal was resolved from.
type PrincipalKind int

const (
	KindUser PrincipalKind = iota + 1
	KindStudent
)

func (k PrincipalKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindStudent:
		return "student"
	}
	return "unknown"
}

// Principal is the resolver's view of whichever row authenticated a
// request. Exactly one of User and Student is non-nil, matching Kind.
type Principal struct {
	Kind    PrincipalKind
	User    *User
	Student *Student
}

// UserPrincipal wraps a users row.
func UserPrincipal(u User) Principal { return Principal{Kind: KindUser, User: &u} }

// StudentPrincipal wraps a students row.
func StudentPrincipal(s Student) Principal { return Principal{Kind: KindStudent, Student: &s} }

// ID is the primary key within the principal's own table.
func (p Principal) ID() uint64 {
	if p.Kind == KindStudent {
		return p.Student.ID
	}
	return p.User.ID
}

// Role is the stored role for users and the literal STUDENT for students.
func (p Principal) Role() string {
	if p.Kind == KindStudent {
		return RoleStudent
	}
	return p.User.Role
}

func (p Principal) Name() string {
	if p.Kind == KindStudent {
		return p.Student.Name
	}
	return p.User.Name
}

func (p Principal) Email() string {
	if p.Kind == KindStudent {
		return deref(p.Student.Email)
	}
	return p.User.EmailOrEmpty()
}

// PasswordHash returns "" when the principal has no password set.
func (p Principal) PasswordHash() string {
	if p.Kind == KindStudent {
		return deref(p.Student.PasswordHash)
	}
	return p.User.PasswordHash
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
