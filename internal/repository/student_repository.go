package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/donation-identity/internal/model"
)

const studentColumns = "id,name,father_name,email,phone_number,password_hash,national_id," +
	"birth_date,city,region,location,created_at"

// StudentRepo persists beneficiaries. Its unique keys are enforced
// independently of the users table.
type StudentRepo struct{ DB *sql.DB }

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{DB: db} }

// Create inserts s and returns its ID.
func (r *StudentRepo) Create(ctx context.Context, s *model.Student) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO students (name,father_name,email,phone_number,password_hash,national_id,birth_date,city,region,location) "+
			"VALUES (?,?,?,?,?,?,?,?,?,?)",
		s.Name, nullable(s.FatherName), nullable(s.Email), nullable(s.PhoneNumber), nullable(s.PasswordHash),
		nullable(s.NationalID), nullableTime(s.BirthDate), nullable(s.City), nullable(s.Region), nullable(s.Location))
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *StudentRepo) GetByID(ctx context.Context, id uint64) (model.Student, error) {
	return r.getOne(ctx, "SELECT "+studentColumns+" FROM students WHERE id=? LIMIT 1", id)
}

func (r *StudentRepo) GetByEmail(ctx context.Context, email string) (model.Student, error) {
	return r.getOne(ctx, "SELECT "+studentColumns+" FROM students WHERE email=? LIMIT 1", email)
}

func (r *StudentRepo) GetByPhone(ctx context.Context, phone string) (model.Student, error) {
	return r.getOne(ctx, "SELECT "+studentColumns+" FROM students WHERE phone_number=? LIMIT 1", phone)
}

func (r *StudentRepo) GetByNationalID(ctx context.Context, nationalID string) (model.Student, error) {
	return r.getOne(ctx, "SELECT "+studentColumns+" FROM students WHERE national_id=? LIMIT 1", nationalID)
}

func (r *StudentRepo) getOne(ctx context.Context, query string, arg any) (model.Student, error) {
	var (
		s                               model.Student
		father, email, phone, hash, nid sql.NullString
		city, region, location          sql.NullString
		birth                           sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&s.ID, &s.Name, &father, &email, &phone, &hash, &nid, &birth, &city, &region, &location, &s.CreatedAt)
	if err != nil {
		return model.Student{}, translate(err)
	}
	s.FatherName = strPtr(father)
	s.Email = strPtr(email)
	s.PhoneNumber = strPtr(phone)
	s.PasswordHash = strPtr(hash)
	s.NationalID = strPtr(nid)
	s.BirthDate = timePtr(birth)
	s.City = strPtr(city)
	s.Region = strPtr(region)
	s.Location = strPtr(location)
	return s, nil
}
