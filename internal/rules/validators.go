package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/labelwatch/compliance-cli/internal/model"
)

// ValidatorFunc checks one field value. A nil return means the value is
// acceptable for compliance purposes.
type ValidatorFunc func(value string) error

var (
	// ₹ 45.00, Rs. 45, INR 45, MRP 45.00 — currency marker optional, amount
	// must parse positive. The guard before the amount rejects a leading
	// minus so "-45" never reads as 45.
	currencyRe = regexp.MustCompile(`(?i)(?:^|[^\d-])(?:₹|rs\.?|inr)?\s*([0-9]+(?:\.[0-9]{1,2})?)`)

	quantityRe = regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*(kg|g|mg|l|ltr|litres?|liters?|ml|grams?|pcs|pieces?|units?|n)\b`)

	// dd/mm/yyyy, dd-mm-yy, 2024-03-01, and month-name forms like "Mar 2024".
	dateRe = regexp.MustCompile(`(?i)(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s*[,']?\s*\d{2,4})`)

	// "Best before 6 months from manufacture" style shelf-life declarations.
	durationRe = regexp.MustCompile(`(?i)\d+\s*(days?|months?|years?|yrs?)`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?\d[\d\s\-]{6,}\d)`)

	digitsRe = regexp.MustCompile(`\d`)
)

// validateCurrency requires a positive currency amount, with or without an
// MRP/₹/Rs marker.
func validateCurrency(value string) error {
	m := currencyRe.FindStringSubmatch(value)
	if m == nil {
		return eris.Errorf("no currency amount in %q", value)
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 {
		return eris.Errorf("currency amount %q is not positive", m[1])
	}
	return nil
}

// validateQuantity requires a numeric magnitude followed by a recognized
// unit of weight, volume, or count.
func validateQuantity(value string) error {
	m := quantityRe.FindStringSubmatch(value)
	if m == nil {
		return eris.Errorf("no magnitude+unit in %q", value)
	}
	mag, err := strconv.ParseFloat(m[1], 64)
	if err != nil || mag <= 0 {
		return eris.Errorf("quantity magnitude %q is not positive", m[1])
	}
	return nil
}

func validateNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return eris.New("empty value")
	}
	return nil
}

func validateDate(value string) error {
	if !dateRe.MatchString(value) {
		return eris.Errorf("no recognizable date in %q", value)
	}
	return nil
}

// validateDateOrDuration accepts either a date or a shelf-life duration,
// since "best before" is printed both ways.
func validateDateOrDuration(value string) error {
	if dateRe.MatchString(value) || durationRe.MatchString(value) {
		return nil
	}
	return eris.Errorf("no date or duration in %q", value)
}

// validateContact requires at least one reachable channel: an email address
// or a phone number.
func validateContact(value string) error {
	if emailRe.MatchString(value) || phoneRe.MatchString(value) {
		return nil
	}
	return eris.Errorf("no email or phone in %q", value)
}

func digitCount(value string) int {
	return len(digitsRe.FindAllString(value, -1))
}

func validateLicense(value string) error {
	if digitCount(value) < 6 {
		return eris.Errorf("license %q has fewer than 6 digits", value)
	}
	return nil
}

func validateBarcode(value string) error {
	if digitCount(value) < 8 {
		return eris.Errorf("barcode %q has fewer than 8 digits", value)
	}
	return nil
}

// validators is the closed registry of validator ids referenced by catalogue
// files. An unknown id in a catalogue is a configuration error.
var validators = map[string]ValidatorFunc{
	"currency":         validateCurrency,
	"quantity":         validateQuantity,
	"nonempty":         validateNonEmpty,
	"date":             validateDate,
	"date_or_duration": validateDateOrDuration,
	"contact":          validateContact,
	"license":          validateLicense,
	"barcode":          validateBarcode,
}

// Validate runs value through the catalogue validator for field. Fields the
// catalogue does not cover are accepted as-is.
func (c *Catalogue) Validate(field model.FieldName, value string) error {
	rule, ok := c.byField[field]
	if !ok {
		return nil
	}
	return rule.validator(value)
}
