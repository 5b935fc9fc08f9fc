package importer

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Dan9191/loan-crm/internal/models"
)

// exportColumns use the canonical import headers so an export can be edited
// and uploaded again.
var exportColumns = []string{
	"phone_number", "first_name", "last_name", "email", "pan_number", "date_of_birth", "age",
	"gender", "city", "state", "pin_code", "profession", "monthly_income", "bureau_score",
	"income_mode", "consent_taken",
}

// WriteCSV writes users as CSV with a header row
func WriteCSV(w io.Writer, users []models.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for _, u := range users {
		var dob, age, income, score string
		if u.DateOfBirth != nil {
			dob = u.DateOfBirth.Format("2006-01-02")
		}
		if u.Age != nil {
			age = strconv.Itoa(*u.Age)
		}
		if u.MonthlyIncome != nil {
			income = strconv.FormatFloat(*u.MonthlyIncome, 'f', -1, 64)
		}
		if u.BureauScore != nil {
			score = strconv.Itoa(*u.BureauScore)
		}
		record := []string{
			u.PhoneNumber, u.FirstName, u.LastName, u.Email, u.PANNumber, dob, age,
			u.Gender, u.City, u.State, u.PinCode, u.Profession, income, score,
			u.IncomeMode, strconv.FormatBool(u.ConsentTaken),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
