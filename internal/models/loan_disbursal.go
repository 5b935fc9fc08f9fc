package models

import "time"

// LoanDisbursal represents funds paid out against an approved application.
// LeadID is the legacy back-reference kept for audit only; the owning user is
// always reached through the application.
type LoanDisbursal struct {
	ID                int64     `db:"id" json:"id"`
	LoanApplicationID *int64    `db:"loan_application_id" json:"loan_application_id"`
	LeadID            *int64    `db:"lead_id" json:"lead_id,omitempty"`
	LoanAmount        float64   `db:"loan_amount" json:"loan_amount"`
	DisbursedDate     time.Time `db:"disbursed_date" json:"disbursed_date"`
	InterestRate      *float64  `db:"interest_rate" json:"interest_rate,omitempty"`
	TenureMonths      *int      `db:"tenure_months" json:"tenure_months,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
