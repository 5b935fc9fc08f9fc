package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lender is a financial institution applications are submitted to.
// A non-empty whitelist limits the lender to those pin codes; otherwise the
// blacklist names the pin codes it does not serve.
type Lender struct {
	ID                  int64     `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	PinCodesWhitelisted PinCodes  `db:"pincodes_whitelisted" json:"pincodes_whitelisted"`
	PinCodesBlacklisted PinCodes  `db:"pincodes_blacklisted" json:"pincodes_blacklisted"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// IsPinCodeAllowed reports whether the lender serves pin
func (l *Lender) IsPinCodeAllowed(pin string) bool {
	if len(l.PinCodesWhitelisted) > 0 {
		return l.PinCodesWhitelisted.Contains(pin)
	}
	return !l.PinCodesBlacklisted.Contains(pin)
}

// PinCodes is a list of pin codes stored as a JSON array
type PinCodes []string

func (p PinCodes) Contains(pin string) bool {
	for _, v := range p {
		if v == pin {
			return true
		}
	}
	return false
}

func (p PinCodes) Value() (driver.Value, error) {
	if p == nil {
		p = PinCodes{}
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PinCodes) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = PinCodes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PinCodes", src)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("invalid pin code list: %w", err)
	}
	*p = list
	return nil
}
