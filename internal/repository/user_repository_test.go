package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/donation-identity/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func strp(s string) *string { return &s }

func TestTranslate(t *testing.T) {
	dup := func(key string) error {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key '" + key + "'"}
	}
	cases := []struct {
		in   error
		want error
	}{
		{sql.ErrNoRows, ErrNotFound},
		{dup("users.uq_users_email"), ErrEmailExists},
		{dup("students.uq_students_phone"), ErrPhoneExists},
		{dup("users.uq_users_national_id"), ErrNationalIDExists},
		{dup("PRIMARY"), ErrConflict},
	}
	for _, c := range cases {
		got := translate(c.in)
		assert.ErrorIs(t, got, c.want)
	}
	assert.ErrorIs(t, translate(dup("uq_users_email")), ErrConflict)

	// The duplicated value is user input and must not steer the match.
	valueLooksLikeKey := &mysql.MySQLError{Number: 1062,
		Message: "Duplicate entry 'national_id@x.com' for key 'users.uq_users_email'"}
	assert.Equal(t, ErrEmailExists, translate(valueLooksLikeKey))
	phoneValue := &mysql.MySQLError{Number: 1062,
		Message: "Duplicate entry 'phone-email' for key 'students.uq_students_national_id'"}
	assert.Equal(t, ErrNationalIDExists, translate(phoneValue))

	other := &mysql.MySQLError{Number: 1045, Message: "Access denied"}
	assert.Same(t, error(other), translate(other))
	assert.NoError(t, translate(nil))
}

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("A", nil, "a@x.com", nil, "hash", model.RoleDonor, model.StatusPending, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := repo.Create(context.Background(), &model.User{
		Name: "A", Email: strp("a@x.com"), PasswordHash: "hash", Role: model.RoleDonor, Status: model.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '09121234567' for key 'users.uq_users_phone'"})

	_, err := repo.Create(context.Background(), &model.User{Name: "A", PhoneNumber: strp("09121234567")})
	assert.ErrorIs(t, err, ErrPhoneExists)
}

func TestUserRepoGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	exp := now.Add(10 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "name", "family_name", "email", "phone_number", "password_hash", "role", "status",
		"national_id", "birth_date", "city", "region", "otp", "otp_expiry", "created_at", "updated_at"}).
		AddRow(5, "Sara", nil, "s@x.com", nil, "h", "ADMIN", "APPROVED", "0012345678", nil, "Tehran", nil, "123456", exp, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).WithArgs("s@x.com").WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), "s@x.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	assert.Nil(t, u.FamilyName)
	assert.Nil(t, u.PhoneNumber)
	require.NotNil(t, u.NationalID)
	assert.Equal(t, "0012345678", *u.NationalID)
	require.NotNil(t, u.OTP)
	assert.Equal(t, "123456", *u.OTP)
	require.NotNil(t, u.OTPExpiry)
	assert.True(t, exp.Equal(*u.OTPExpiry))
}

func TestUserRepoGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE phone_number=?")).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByPhone(context.Background(), "09120000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepoConsumeOTP(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	q := regexp.QuoteMeta("UPDATE users SET otp=NULL, otp_expiry=NULL WHERE id=? AND otp=? AND otp_expiry > ?")
	mock.ExpectExec(q).WithArgs(uint64(5), "123456", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(uint64(5), "123456", now).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ConsumeOTP(context.Background(), 5, "123456", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeOTP(context.Background(), 5, "123456", now)
	require.NoError(t, err)
	assert.False(t, ok, "replay must not consume")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoResetPasswordWithOTP(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=?, otp=NULL, otp_expiry=NULL")).
		WithArgs("newhash", uint64(9), "654321", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ResetPasswordWithOTP(context.Background(), 9, "654321", "newhash", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepoApproveIfPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=? WHERE id=? AND status=?")).
		WithArgs(model.StatusApproved, uint64(3), model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	promoted, err := repo.ApproveIfPending(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, promoted)
}

func TestUserRepoExecError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users").WillReturnError(errors.New("connection reset"))
	assert.EqualError(t, repo.SetOTP(context.Background(), 1, "111111", time.Now()), "connection reset")
}
