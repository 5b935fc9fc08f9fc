package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func TestMergeFillEmptyKeepsPopulatedFields(t *testing.T) {
	existing := &User{PhoneNumber: "9876543210", FirstName: "Asha", PANNumber: "ABCPE1234F"}
	incoming := &User{PhoneNumber: "9876543210", FirstName: "Other", PANNumber: "", City: "Pune", MonthlyIncome: floatPtr(50000)}

	changed := existing.Merge(incoming, FillEmpty)

	require.True(t, changed)
	assert.Equal(t, "Asha", existing.FirstName)
	assert.Equal(t, "ABCPE1234F", existing.PANNumber)
	assert.Equal(t, "Pune", existing.City)
	require.NotNil(t, existing.MonthlyIncome)
	assert.Equal(t, 50000.0, *existing.MonthlyIncome)
}

func TestMergeFillEmptyTakesPopulatedPAN(t *testing.T) {
	existing := &User{PhoneNumber: "9876543210"}
	incoming := &User{PANNumber: "ABCPE1234F"}

	require.True(t, existing.Merge(incoming, FillEmpty))
	assert.Equal(t, "ABCPE1234F", existing.PANNumber)
}

func TestMergeOverwriteReplacesButNeverClears(t *testing.T) {
	existing := &User{FirstName: "Asha", LastName: "Rao", BureauScore: intPtr(700)}
	incoming := &User{FirstName: "Asha K", BureauScore: intPtr(750)}

	require.True(t, existing.Merge(incoming, Overwrite))
	assert.Equal(t, "Asha K", existing.FirstName)
	assert.Equal(t, "Rao", existing.LastName)
	assert.Equal(t, 750, *existing.BureauScore)
}

func TestMergeNoChange(t *testing.T) {
	existing := &User{FirstName: "Asha", BureauScore: intPtr(700), ConsentTaken: true}
	assert.False(t, existing.Merge(&User{FirstName: "Asha", BureauScore: intPtr(700)}, Overwrite))
	assert.True(t, existing.ConsentTaken)
}

func TestMergeDoesNotAliasSource(t *testing.T) {
	existing := &User{}
	incoming := &User{BureauScore: intPtr(600)}
	existing.Merge(incoming, FillEmpty)
	*incoming.BureauScore = 10
	assert.Equal(t, 600, *existing.BureauScore)
}

func TestMergeLeavesAgeToCaller(t *testing.T) {
	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	existing := &User{}
	require.True(t, existing.Merge(&User{DateOfBirth: &dob}, FillEmpty))
	assert.Nil(t, existing.Age)

	existing.RefreshAge(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, existing.Age)
	assert.Equal(t, 35, *existing.Age)
}

func TestAgeOn(t *testing.T) {
	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 34, AgeOn(dob, time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, AgeOn(dob, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, AgeOn(dob, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidatePAN(t *testing.T) {
	for _, pan := range []string{"ABCPE1234F", "AAACA0001Z"} {
		assert.NoError(t, ValidatePAN(pan), pan)
	}
	for _, pan := range []string{"", "ABCPE1234", "abcpe1234f", "ABCXE1234F", "ABCPE0000F", "ABCPE12345"} {
		assert.ErrorIs(t, ValidatePAN(pan), ErrInvalidPAN, pan)
	}
}

func TestValidatePinCode(t *testing.T) {
	assert.NoError(t, ValidatePinCode("411001"))
	assert.Error(t, ValidatePinCode("41100"))
	assert.Error(t, ValidatePinCode("41100a"))
}

func TestLeadAsUserDropsMalformedFields(t *testing.T) {
	lead := &Lead{FirstName: "Ravi", PANNumber: "BAD", PinCode: "12", BureauScore: intPtr(1200)}
	u := lead.AsUser("9876543210")
	assert.Equal(t, "9876543210", u.PhoneNumber)
	assert.Equal(t, "Ravi", u.FirstName)
	assert.Empty(t, u.PANNumber)
	assert.Empty(t, u.PinCode)
	assert.Nil(t, u.BureauScore)
}

func TestLeadAsUserNormalizesPANAndPinCode(t *testing.T) {
	u := (&Lead{PANNumber: " abcpe1234f ", PinCode: "411 001"}).AsUser("9876543210")
	assert.Equal(t, "ABCPE1234F", u.PANNumber)
	assert.Equal(t, "411001", u.PinCode)

	assert.Equal(t, "ABCPE1234F", NormalizePAN("\tabcpe1234F"))
	assert.Equal(t, "560034", NormalizePinCode("560-034"))
}

func TestLeadApplicationStatus(t *testing.T) {
	assert.Equal(t, StatusApproved, (&Lead{Status: " Approved "}).ApplicationStatus())
	assert.Equal(t, StatusPending, (&Lead{Status: "interested"}).ApplicationStatus())
}

func TestNewValidatorTags(t *testing.T) {
	v := NewValidator()
	type req struct {
		PAN    string `validate:"pan"`
		Pin    string `validate:"pincode"`
		Status string `validate:"appstatus"`
	}
	assert.NoError(t, v.Struct(req{}))
	assert.NoError(t, v.Struct(req{PAN: "ABCPE1234F", Pin: "411001", Status: "approved"}))
	assert.Error(t, v.Struct(req{Status: "closed"}))
	assert.Error(t, v.Struct(req{PAN: "XYZ"}))
}
