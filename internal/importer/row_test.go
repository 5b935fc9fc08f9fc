package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesValues(t *testing.T) {
	csv := "\ufeffPhone_Number,First_Name,PAN,Pincode,DOB,Gender,Profession,Income,Credit_Score,Income_Mode,Consent,Unknown\n" +
		"+91 98765 43210,Asha,abcpe1234f,411001,15/06/1990,f,self employed,\"55,000\",720,bank transfer,yes,x\n"

	rows, rowErrors, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "9876543210", row.PhoneNumber)
	assert.Equal(t, "Asha", row.FirstName)
	assert.Equal(t, "ABCPE1234F", row.PANNumber)
	assert.Equal(t, "411001", row.PinCode)
	require.NotNil(t, row.DateOfBirth)
	assert.True(t, time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC).Equal(*row.DateOfBirth))
	assert.Equal(t, "Female", row.Gender)
	assert.Equal(t, "Self-Employed", row.Profession)
	require.NotNil(t, row.MonthlyIncome)
	assert.Equal(t, 55000.0, *row.MonthlyIncome)
	require.NotNil(t, row.BureauScore)
	assert.Equal(t, 720, *row.BureauScore)
	assert.Equal(t, "Bank Transfer", row.IncomeMode)
	require.NotNil(t, row.Consent)
	assert.True(t, *row.Consent)
}

func TestParseDropsMalformedOptionalValues(t *testing.T) {
	csv := "phone_number,pan_number,pin_code,bureau_score,profession\n9876543210,XYZ,12,1200,astronaut\n"

	rows, rowErrors, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].PANNumber)
	assert.Empty(t, rows[0].PinCode)
	assert.Nil(t, rows[0].BureauScore)
	assert.Empty(t, rows[0].Profession)
}

func TestParseDropsNonFiniteIncome(t *testing.T) {
	csv := "phone_number,first_name,monthly_income\n" +
		"9123456780,Ravi,inf\n" +
		"9123456781,Meena,Infinity\n" +
		"9123456782,Kiran,NaN\n" +
		"9123456783,Arun,-1\n"

	rows, rowErrors, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Nil(t, row.MonthlyIncome, row.FirstName)
	}
}

func TestParseReportsBadAndDuplicateRows(t *testing.T) {
	csv := "phone_number,first_name\n" +
		"9876543210,Asha\n" +
		",NoPhone\n" +
		"12345,Short\n" +
		"098765 43210,Again\n"

	rows, rowErrors, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rowErrors, 3)
	assert.Equal(t, "Row 3: missing phone_number - SKIPPED", rowErrors[0])
	assert.Contains(t, rowErrors[1], "Row 4: invalid phone number")
	assert.Contains(t, rowErrors[2], "Row 5: Duplicate phone number 9876543210 in CSV (first on row 2)")
}

func TestParseFileErrors(t *testing.T) {
	_, _, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = Parse(strings.NewReader("first_name,last_name\nA,B\n"))
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestRowUserCarriesConsent(t *testing.T) {
	yes := true
	u := (&Row{PhoneNumber: "9876543210", Consent: &yes}).User()
	assert.True(t, u.ConsentTaken)
	assert.False(t, (&Row{}).User().ConsentTaken)
}
