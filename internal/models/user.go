package models

import "time"

// User is the canonical customer record. A user IS a lead: every personal
// and financial attribute lives here and nowhere else.
type User struct {
	ID            int64      `db:"id" json:"id"`
	PhoneNumber   string     `db:"phone_number" json:"phone_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         string     `db:"email" json:"email,omitempty"`
	PANNumber     string     `db:"pan_number" json:"pan_number,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Age           *int       `db:"age" json:"age,omitempty"`
	Gender        string     `db:"gender" json:"gender,omitempty"`
	City          string     `db:"city" json:"city,omitempty"`
	State         string     `db:"state" json:"state,omitempty"`
	PinCode       string     `db:"pin_code" json:"pin_code,omitempty"`
	Profession    string     `db:"profession" json:"profession,omitempty"`
	MonthlyIncome *float64   `db:"monthly_income" json:"monthly_income,omitempty"`
	BureauScore   *int       `db:"bureau_score" json:"bureau_score,omitempty"`
	IncomeMode    string     `db:"income_mode" json:"income_mode,omitempty"`
	ConsentTaken  bool       `db:"consent_taken" json:"consent_taken"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// MergePolicy decides how incoming values are folded into an existing user.
type MergePolicy int

const (
	// FillEmpty only populates fields that are still empty on the target.
	FillEmpty MergePolicy = iota
	// Overwrite replaces populated fields with incoming non-empty values.
	Overwrite
)

// Merge folds src into u according to policy and reports whether anything
// changed. An empty incoming value never clears a populated field, and the
// phone number is never touched. Consent, once given, stays given. The stored
// age is left to the caller to refresh.
func (u *User) Merge(src *User, policy MergePolicy) bool {
	changed := false
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&u.FirstName, src.FirstName},
		{&u.LastName, src.LastName},
		{&u.Email, src.Email},
		{&u.PANNumber, src.PANNumber},
		{&u.Gender, src.Gender},
		{&u.City, src.City},
		{&u.State, src.State},
		{&u.PinCode, src.PinCode},
		{&u.Profession, src.Profession},
		{&u.IncomeMode, src.IncomeMode},
	} {
		changed = mergeValue(f.dst, f.val, policy) || changed
	}
	changed = mergePtr(&u.DateOfBirth, src.DateOfBirth, policy, func(a, b time.Time) bool { return a.Equal(b) }) || changed
	changed = mergePtr(&u.MonthlyIncome, src.MonthlyIncome, policy, func(a, b float64) bool { return a == b }) || changed
	changed = mergePtr(&u.BureauScore, src.BureauScore, policy, func(a, b int) bool { return a == b }) || changed

	if src.ConsentTaken && !u.ConsentTaken {
		u.ConsentTaken = true
		changed = true
	}
	return changed
}

func mergeValue(dst *string, val string, policy MergePolicy) bool {
	if val == "" || *dst == val {
		return false
	}
	if *dst != "" && policy == FillEmpty {
		return false
	}
	*dst = val
	return true
}

func mergePtr[T any](dst **T, val *T, policy MergePolicy, equal func(a, b T) bool) bool {
	if val == nil {
		return false
	}
	if *dst != nil {
		if policy == FillEmpty || equal(**dst, *val) {
			return false
		}
	}
	v := *val
	*dst = &v
	return true
}

// RefreshAge recomputes the stored age from the date of birth.
func (u *User) RefreshAge(now time.Time) {
	if u.DateOfBirth == nil {
		u.Age = nil
		return
	}
	age := AgeOn(*u.DateOfBirth, now)
	u.Age = &age
}

// AgeOn returns the age in whole years of someone born on dob at the given date.
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}
