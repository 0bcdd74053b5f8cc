package models

import "fmt"

// PIICategory is the closed catalog of personal data categories the redactor handles.
type PIICategory int

const (
	PIIPaymentCard PIICategory = iota + 1
	PIIBankAccount
	PIITaxID
	PIINationalID
	PIIPassport
	PIIEmail
	PIIPhone
)

// PIICategories lists every category in redaction order.
var PIICategories = []PIICategory{
	PIIPaymentCard, PIIBankAccount, PIITaxID, PIINationalID, PIIPassport, PIIEmail, PIIPhone,
}

// String returns the wire name of the category.
func (c PIICategory) String() string {
	switch c {
	case PIIPaymentCard:
		return "payment_card"
	case PIIBankAccount:
		return "bank_account"
	case PIITaxID:
		return "tax_id"
	case PIINationalID:
		return "national_id"
	case PIIPassport:
		return "passport"
	case PIIEmail:
		return "email"
	case PIIPhone:
		return "phone"
	}
	return fmt.Sprintf("PIICategory(%d)", int(c))
}

// ParsePIICategory is the inverse of String.
func ParsePIICategory(s string) (PIICategory, error) {
	for _, c := range PIICategories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown pii category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c PIICategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *PIICategory) UnmarshalText(b []byte) error {
	v, err := ParsePIICategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PIIFinding groups the raw matches of one category. It exists only during redaction and
// must never be logged or persisted.
type PIIFinding struct {
	Category   PIICategory
	RawMatches []string
}
