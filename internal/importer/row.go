package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/phone"
)

var (
	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrMissingPhone  = errors.New("missing required column: phone_number")
	ErrNoValidRows   = errors.New("no valid rows found in CSV")
	ErrUnknownUpload = errors.New("upload session expired or invalid, please upload the CSV again")
)

// Row is one normalized CSV line. Line counts the header as line 1.
type Row struct {
	Line          int        `json:"line"`
	PhoneNumber   string     `json:"phone_number" validate:"required,len=10,numeric"`
	FirstName     string     `json:"first_name,omitempty" validate:"max=100"`
	LastName      string     `json:"last_name,omitempty" validate:"max=100"`
	Email         string     `json:"email,omitempty" validate:"omitempty,email"`
	PANNumber     string     `json:"pan_number,omitempty" validate:"pan"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	Gender        string     `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Other"`
	City          string     `json:"city,omitempty" validate:"max=100"`
	State         string     `json:"state,omitempty" validate:"max=100"`
	PinCode       string     `json:"pin_code,omitempty" validate:"pincode"`
	Profession    string     `json:"profession,omitempty" validate:"omitempty,oneof=Salaried Self-Employed Business"`
	MonthlyIncome *float64   `json:"monthly_income,omitempty" validate:"omitempty,gte=0"`
	BureauScore   *int       `json:"bureau_score,omitempty" validate:"omitempty,gte=0,lte=900"`
	IncomeMode    string     `json:"income_mode,omitempty"`
	Consent       *bool      `json:"consent_taken,omitempty"`
}

// User converts the row into the user fields it carries
func (r *Row) User() *models.User {
	u := &models.User{
		PhoneNumber:   r.PhoneNumber,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PANNumber:     r.PANNumber,
		DateOfBirth:   r.DateOfBirth,
		Gender:        r.Gender,
		City:          r.City,
		State:         r.State,
		PinCode:       r.PinCode,
		Profession:    r.Profession,
		MonthlyIncome: r.MonthlyIncome,
		BureauScore:   r.BureauScore,
		IncomeMode:    r.IncomeMode,
	}
	if r.Consent != nil {
		u.ConsentTaken = *r.Consent
	}
	return u
}

// header aliases accepted for each field
var columnAliases = map[string]string{
	"phone_number":   "phone_number",
	"phone":          "phone_number",
	"phonenumber":    "phone_number",
	"mobile":         "phone_number",
	"mobile_number":  "phone_number",
	"first_name":     "first_name",
	"last_name":      "last_name",
	"email":          "email",
	"pan_number":     "pan_number",
	"pan":            "pan_number",
	"date_of_birth":  "date_of_birth",
	"dob":            "date_of_birth",
	"gender":         "gender",
	"city":           "city",
	"state":          "state",
	"pin_code":       "pin_code",
	"pincode":        "pin_code",
	"profession":     "profession",
	"employment":     "profession",
	"monthly_income": "monthly_income",
	"income":         "monthly_income",
	"salary":         "monthly_income",
	"bureau_score":   "bureau_score",
	"credit_score":   "bureau_score",
	"income_mode":    "income_mode",
	"consent_taken":  "consent_taken",
	"consent":        "consent_taken",
}

var (
	genders = map[string]string{
		"m": "Male", "male": "Male",
		"f": "Female", "female": "Female",
		"o": "Other", "other": "Other",
	}
	professions = map[string]string{
		"salaried":      "Salaried",
		"self employed": "Self-Employed",
		"self_employed": "Self-Employed",
		"self-employed": "Self-Employed",
		"selfemployed":  "Self-Employed",
		"business":      "Business",
	}
	incomeModes = map[string]string{
		"cheque":        "Cheque",
		"bank transfer": "Bank Transfer",
		"bank_transfer": "Bank Transfer",
		"banktransfer":  "Bank Transfer",
		"cash":          "Cash",
	}
	dobLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"}
)

// Parse reads a CSV of user rows. Rows that cannot be used are reported in
// rowErrors and left out; err is reserved for an unreadable file.
func Parse(r io.Reader) (rows []Row, rowErrors []string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	hasPhone := false
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		columns[i] = columnAliases[h]
		if columns[i] == "phone_number" {
			hasPhone = true
		}
	}
	if !hasPhone {
		return nil, nil, ErrMissingPhone
	}

	seen := map[string]int{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v - SKIPPED", line, err))
			continue
		}

		values := map[string]string{}
		for i, v := range record {
			if i < len(columns) && columns[i] != "" {
				if v = strings.TrimSpace(v); v != "" {
					values[columns[i]] = v
				}
			}
		}

		row, err := normalizeRow(line, values)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v - SKIPPED", line, err))
			continue
		}
		if first, dup := seen[row.PhoneNumber]; dup {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Duplicate phone number %s in CSV (first on row %d) - SKIPPED", line, row.PhoneNumber, first))
			continue
		}
		seen[row.PhoneNumber] = line
		rows = append(rows, row)
	}
	return rows, rowErrors, nil
}

// normalizeRow maps raw values onto a row. Optional values that do not fit
// their format are dropped instead of failing the row.
func normalizeRow(line int, v map[string]string) (Row, error) {
	row := Row{Line: line}

	raw, ok := v["phone_number"]
	if !ok {
		return row, errors.New("missing phone_number")
	}
	number, err := phone.Normalize(raw)
	if err != nil {
		return row, fmt.Errorf("invalid phone number %q (must be 10 digits)", raw)
	}
	row.PhoneNumber = number

	row.FirstName = v["first_name"]
	row.LastName = v["last_name"]
	row.Email = v["email"]
	row.City = v["city"]
	row.State = v["state"]

	if pan := models.NormalizePAN(v["pan_number"]); pan != "" && models.ValidatePAN(pan) == nil {
		row.PANNumber = pan
	}
	if pin := models.NormalizePinCode(v["pin_code"]); pin != "" && models.ValidatePinCode(pin) == nil {
		row.PinCode = pin
	}
	if g, ok := genders[strings.ToLower(v["gender"])]; ok {
		row.Gender = g
	}
	if p, ok := professions[strings.ToLower(v["profession"])]; ok {
		row.Profession = p
	}
	if m, ok := incomeModes[strings.ToLower(v["income_mode"])]; ok {
		row.IncomeMode = m
	}
	if dob := v["date_of_birth"]; dob != "" {
		for _, layout := range dobLayouts {
			if t, err := time.Parse(layout, dob); err == nil {
				row.DateOfBirth = &t
				break
			}
		}
	}
	if income := v["monthly_income"]; income != "" {
		cleaned := strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "", " ", "").Replace(income)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
			row.MonthlyIncome = &f
		}
	}
	if score := v["bureau_score"]; score != "" {
		if n, err := strconv.Atoi(score); err == nil && models.ValidBureauScore(n) {
			row.BureauScore = &n
		}
	}
	switch strings.ToLower(v["consent_taken"]) {
	case "true", "t", "yes", "y", "1":
		t := true
		row.Consent = &t
	case "false", "f", "no", "n", "0":
		f := false
		row.Consent = &f
	}
	return row, nil
}
