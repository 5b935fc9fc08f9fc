package models

import "time"

// ApplicationStatus is the CRM-operator driven state of an application
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// LoanApplication is one user's application to one lender. The pair
// (UserID, LenderID) is unique.
type LoanApplication struct {
	ID              int64             `db:"id" json:"id"`
	UserID          int64             `db:"user_id" json:"user_id"`
	LenderID        int64             `db:"lender_id" json:"lender_id"`
	Status          ApplicationStatus `db:"status" json:"status"`
	RequestedAmount *float64          `db:"requested_amount" json:"requested_amount,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}
