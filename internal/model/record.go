package model

import "time"

// Contract is an ambassador's agreement with a student. Only the
// columns the session layer writes are modelled here.
type Contract struct {
	ID           uint64    // contracts.id
	AmbassadorID uint64    // contracts.ambassador_id (users.id of the caller)
	StudentID    uint64    // contracts.student_id
	Title        string    // contracts.title
	CreatedAt    time.Time // contracts.created_at
}

// Donation is a pledge recorded on behalf of a donor.
type Donation struct {
	ID          uint64    // donations.id
	DonorID     uint64    // donations.donor_id (users.id of the caller)
	AmountCents uint64    // donations.amount_cents
	Note        string    // donations.note
	CreatedAt   time.Time // donations.created_at
}
