package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/donation-identity/internal/model"
)

// ContractRepo creates contract records on behalf of ambassadors.
type ContractRepo struct{ DB *sql.DB }

func NewContractRepo(db *sql.DB) *ContractRepo { return &ContractRepo{DB: db} }

// Create inserts c and returns its ID.
func (r *ContractRepo) Create(ctx context.Context, c *model.Contract) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contracts (ambassador_id, student_id, title) VALUES (?,?,?)",
		c.AmbassadorID, c.StudentID, c.Title)
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// DonationRepo creates donation records on behalf of donors.
type DonationRepo struct{ DB *sql.DB }

func NewDonationRepo(db *sql.DB) *DonationRepo { return &DonationRepo{DB: db} }

// Create inserts d and returns its ID.
func (r *DonationRepo) Create(ctx context.Context, d *model.Donation) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO donations (donor_id, amount_cents, note) VALUES (?,?,?)",
		d.DonorID, d.AmountCents, nullable(&d.Note))
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}
