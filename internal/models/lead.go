package models

import (
	"strings"
	"time"
)

// Lead is the deprecated per-lender duplicate of a user's data. Rows are
// read only and exist to feed the one-time migration.
type Lead struct {
	ID            int64      `db:"id" json:"id"`
	LenderID      *int64     `db:"lender_id" json:"lender_id,omitempty"`
	PhoneNumber   string     `db:"phone_number" json:"phone_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         string     `db:"email" json:"email,omitempty"`
	PANNumber     string     `db:"pan_number" json:"pan_number,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        string     `db:"gender" json:"gender,omitempty"`
	City          string     `db:"city" json:"city,omitempty"`
	State         string     `db:"state" json:"state,omitempty"`
	PinCode       string     `db:"pin_code" json:"pin_code,omitempty"`
	Profession    string     `db:"profession" json:"profession,omitempty"`
	MonthlyIncome *float64   `db:"monthly_income" json:"monthly_income,omitempty"`
	BureauScore   *int       `db:"bureau_score" json:"bureau_score,omitempty"`
	IncomeMode    string     `db:"income_mode" json:"income_mode,omitempty"`
	ConsentTaken  bool       `db:"consent_taken" json:"consent_taken"`
	Status        string     `db:"status" json:"status"`
	LoanAmount    *float64   `db:"loan_amount" json:"loan_amount,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// AsUser copies the personal fields of the lead into a user keyed by the
// given canonical phone number.
func (l *Lead) AsUser(phone string) *User {
	u := &User{
		PhoneNumber:   phone,
		FirstName:     l.FirstName,
		LastName:      l.LastName,
		Email:         l.Email,
		PANNumber:     NormalizePAN(l.PANNumber),
		DateOfBirth:   l.DateOfBirth,
		Gender:        l.Gender,
		City:          l.City,
		State:         l.State,
		PinCode:       NormalizePinCode(l.PinCode),
		Profession:    l.Profession,
		MonthlyIncome: l.MonthlyIncome,
		BureauScore:   l.BureauScore,
		IncomeMode:    l.IncomeMode,
		ConsentTaken:  l.ConsentTaken,
	}
	if u.PANNumber != "" && ValidatePAN(u.PANNumber) != nil {
		u.PANNumber = ""
	}
	if u.PinCode != "" && ValidatePinCode(u.PinCode) != nil {
		u.PinCode = ""
	}
	if u.BureauScore != nil && !ValidBureauScore(*u.BureauScore) {
		u.BureauScore = nil
	}
	return u
}

// ApplicationStatus maps the lead's free-form status onto an application
// status, defaulting to pending.
func (l *Lead) ApplicationStatus() ApplicationStatus {
	s := ApplicationStatus(strings.ToLower(strings.TrimSpace(l.Status)))
	if s.Valid() {
		return s
	}
	return StatusPending
}
