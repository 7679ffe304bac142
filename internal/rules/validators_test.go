package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCurrency(t *testing.T) {
	valid := []string{"₹ 45.00", "Rs. 45", "Rs 120", "INR 45", "MRP 45.00", "45.50"}
	for _, v := range valid {
		assert.NoError(t, validateCurrency(v), "value %q", v)
	}
	invalid := []string{"free", "priceless", "₹ 0", "0.00", "-45", "Rs. -45", "₹-45.00"}
	for _, v := range invalid {
		assert.Error(t, validateCurrency(v), "value %q", v)
	}
}

func TestValidateQuantity(t *testing.T) {
	valid := []string{"500 g", "1 kg", "1.5 Ltr", "200ml", "6 pcs", "12 pieces", "1 N"}
	for _, v := range valid {
		assert.NoError(t, validateQuantity(v), "value %q", v)
	}
	invalid := []string{"large", "500", "0 g", "grams"}
	for _, v := range invalid {
		assert.Error(t, validateQuantity(v), "value %q", v)
	}
}

func TestValidateDate(t *testing.T) {
	valid := []string{"01/03/2024", "1-3-24", "2024-03-01", "Mar 2024", "JAN. 2025", "Packed on 12/08/2026"}
	for _, v := range valid {
		assert.NoError(t, validateDate(v), "value %q", v)
	}
	invalid := []string{"soon", "next month", ""}
	for _, v := range invalid {
		assert.Error(t, validateDate(v), "value %q", v)
	}
}

func TestValidateDateOrDuration(t *testing.T) {
	valid := []string{"2024-03-01", "Best before 6 months", "12 months from manufacture", "2 yrs"}
	for _, v := range valid {
		assert.NoError(t, validateDateOrDuration(v), "value %q", v)
	}
	assert.Error(t, validateDateOrDuration("see package"))
}

func TestValidateContact(t *testing.T) {
	valid := []string{"care@amul.coop", "1800-258-3333", "+91 22 6852 6666", "Email: help@co.in or call"}
	for _, v := range valid {
		assert.NoError(t, validateContact(v), "value %q", v)
	}
	invalid := []string{"visit our website", "amul.com", ""}
	for _, v := range invalid {
		assert.Error(t, validateContact(v), "value %q", v)
	}
}

func TestValidateLicense(t *testing.T) {
	assert.NoError(t, validateLicense("10012021000123"))
	assert.NoError(t, validateLicense("Lic. No. 123456"))
	assert.Error(t, validateLicense("12345"))
	assert.Error(t, validateLicense("pending"))
}

func TestValidateBarcode(t *testing.T) {
	assert.NoError(t, validateBarcode("8901262010013"))
	assert.NoError(t, validateBarcode("EAN 12345678"))
	assert.Error(t, validateBarcode("1234567"))
}

func TestCatalogueValidateUncoveredFieldAccepted(t *testing.T) {
	c, err := build("T-1", []Rule{
		{Field: "mrp", Requirement: Required, ValidatorID: "currency"},
	})
	assert.NoError(t, err)
	assert.NoError(t, c.Validate("barcode", "anything goes"))
	assert.Error(t, c.Validate("mrp", "free"))
}
