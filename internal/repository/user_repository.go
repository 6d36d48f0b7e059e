package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/donation-identity/internal/model"
)

const userColumns = "id,name,family_name,email,phone_number,password_hash,role,status," +
	"national_id,birth_date,city,region,otp,otp_expiry,created_at,updated_at"

// UserRepo persists administrators, ambassadors and donors.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u and returns its ID. The unique keys on email, phone and
// national id are the authoritative uniqueness guard; a violation comes
// back as ErrEmailExists, ErrPhoneExists or ErrNationalIDExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,family_name,email,phone_number,password_hash,role,status,national_id,birth_date,city,region) "+
			"VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		u.Name, nullable(u.FamilyName), nullable(u.Email), nullable(u.PhoneNumber), u.PasswordHash,
		u.Role, u.Status, nullable(u.NationalID), nullableTime(u.BirthDate), nullable(u.City), nullable(u.Region))
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByPhone fetches a user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE phone_number=? LIMIT 1", phone)
}

// GetByNationalID fetches a user by national id.
func (r *UserRepo) GetByNationalID(ctx context.Context, nationalID string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE national_id=? LIMIT 1", nationalID)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u                                       model.User
		family, email, phone, nid, city, region sql.NullString
		otp                                     sql.NullString
		birth, otpExp                           sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &family, &email, &phone, &u.PasswordHash, &u.Role, &u.Status,
		&nid, &birth, &city, &region, &otp, &otpExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translate(err)
	}
	u.FamilyName = strPtr(family)
	u.Email = strPtr(email)
	u.PhoneNumber = strPtr(phone)
	u.NationalID = strPtr(nid)
	u.BirthDate = timePtr(birth)
	u.City = strPtr(city)
	u.Region = strPtr(region)
	u.OTP = strPtr(otp)
	u.OTPExpiry = timePtr(otpExp)
	return u, nil
}

// SetOTP stores a fresh challenge, replacing any outstanding one.
func (r *UserRepo) SetOTP(ctx context.Context, id uint64, code string, expiry time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp=?, otp_expiry=? WHERE id=?", code, expiry.UTC(), id)
	return err
}

// ConsumeOTP clears the challenge if and only if code matches and now is
// strictly before the stored expiry. The check and the clear are one
// statement, so a code can be consumed at most once even under concurrent
// presentation. It reports whether the challenge was consumed.
func (r *UserRepo) ConsumeOTP(ctx context.Context, id uint64, code string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp=NULL, otp_expiry=NULL WHERE id=? AND otp=? AND otp_expiry > ?",
		id, code, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResetPasswordWithOTP replaces the password hash and clears the challenge
// in the same conditional update ConsumeOTP uses.
func (r *UserRepo) ResetPasswordWithOTP(ctx context.Context, id uint64, code, hash string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, otp=NULL, otp_expiry=NULL WHERE id=? AND otp=? AND otp_expiry > ?",
		hash, id, code, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ApproveIfPending promotes a PENDING user to APPROVED and leaves any
// other status alone. It reports whether a promotion happened.
func (r *UserRepo) ApproveIfPending(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=? WHERE id=? AND status=?",
		model.StatusApproved, id, model.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateStatus sets status unconditionally. Callers check existence first;
// MySQL reports zero affected rows when the value does not change.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", status, id)
	return err
}
