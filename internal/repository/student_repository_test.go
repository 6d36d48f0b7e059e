package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/donation-identity/internal/model"
)

func TestStudentRepoCreateDuplicateNationalID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '0012345678' for key 'students.uq_students_national_id'"})

	_, err := repo.Create(context.Background(), &model.Student{Name: "Ali", NationalID: strp("0012345678")})
	assert.ErrorIs(t, err, ErrNationalIDExists)
}

func TestStudentRepoGetByPhone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepo(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "father_name", "email", "phone_number", "password_hash", "national_id",
		"birth_date", "city", "region", "location", "created_at"}).
		AddRow(11, "Ali", "Reza", nil, "09121234567", nil, nil, nil, nil, nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE phone_number=?")).WithArgs("09121234567").WillReturnRows(rows)

	s, err := repo.GetByPhone(context.Background(), "09121234567")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), s.ID)
	assert.Nil(t, s.PasswordHash)
	require.NotNil(t, s.FatherName)
	assert.Equal(t, "Reza", *s.FatherName)
}

func TestTokenRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Date(2026, 5, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO revoked_tokens")).
		WithArgs("jti-1", uint64(4), "ADMIN", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM revoked_tokens")).WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM revoked_tokens")).WithArgs("jti-2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens")).WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	require.NoError(t, repo.Revoke(ctx, "jti-1", 4, "ADMIN", exp))

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := repo.PurgeExpired(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepos(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WithArgs(uint64(2), uint64(11), "Laptop loan").
		WillReturnResult(sqlmock.NewResult(70, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO donations")).
		WithArgs(uint64(3), uint64(50000), nil).
		WillReturnResult(sqlmock.NewResult(71, 1))

	cid, err := NewContractRepo(db).Create(context.Background(), &model.Contract{AmbassadorID: 2, StudentID: 11, Title: "Laptop loan"})
	require.NoError(t, err)
	assert.Equal(t, uint64(70), cid)

	did, err := NewDonationRepo(db).Create(context.Background(), &model.Donation{DonorID: 3, AmountCents: 50000})
	require.NoError(t, err)
	assert.Equal(t, uint64(71), did)
	assert.NoError(t, mock.ExpectationsWereMet())
}
