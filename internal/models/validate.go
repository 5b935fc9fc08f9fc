package models

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidPAN     = errors.New("PAN must have format AAAAA9999A with a valid holder type")
	ErrInvalidPinCode = errors.New("pin code must be exactly 6 digits")
)

// Fourth PAN character encodes the holder type.
const panHolderTypes = "PCHFATBGJL"

// ValidatePAN checks the PAN format: five uppercase letters, four digits in
// 0001-9999, one uppercase letter.
func ValidatePAN(pan string) error {
	if len(pan) != 10 {
		return ErrInvalidPAN
	}
	for i := 0; i < 10; i++ {
		c := pan[i]
		switch {
		case i < 5 || i == 9:
			if c < 'A' || c > 'Z' {
				return ErrInvalidPAN
			}
		default:
			if c < '0' || c > '9' {
				return ErrInvalidPAN
			}
		}
	}
	if strings.IndexByte(panHolderTypes, pan[3]) < 0 {
		return ErrInvalidPAN
	}
	if n, _ := strconv.Atoi(pan[5:9]); n < 1 {
		return ErrInvalidPAN
	}
	return nil
}

// ValidatePinCode checks for a 6 digit postal code
func ValidatePinCode(pin string) error {
	if len(pin) != 6 || !allDigits(pin) {
		return ErrInvalidPinCode
	}
	return nil
}

// NormalizePAN trims and uppercases a PAN before validation
func NormalizePAN(pan string) string {
	return strings.ToUpper(strings.TrimSpace(pan))
}

// NormalizePinCode keeps only the digits of a pin code
func NormalizePinCode(pin string) string {
	var b strings.Builder
	for _, r := range pin {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidBureauScore reports whether score lies in the 0-900 bureau range
func ValidBureauScore(score int) bool {
	return score >= 0 && score <= 900
}

// NewValidator returns a validator with the "pan", "pincode" and
// "appstatus" tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ValidatePAN(s) == nil
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ValidatePinCode(s) == nil
	})
	_ = v.RegisterValidation("appstatus", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ApplicationStatus(s).Valid()
	})
	return v
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
