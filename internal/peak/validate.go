package peak

import (
	"strconv"
	"strings"
)

// Validate runs the format checks the importer enforces and returns the
// collected problems. Validation never fails the pipeline; the row and its
// error list travel together.
func (r *Row) Validate() []string {
	var errs []string

	if !ValidYYYYMMDD(r.DocDate) {
		errs = append(errs, "document date is not a valid YYYYMMDD date")
	}
	if r.InvoiceDate != "" && !ValidYYYYMMDD(r.InvoiceDate) {
		errs = append(errs, "invoice date is not a valid YYYYMMDD date")
	}
	if r.TaxPurchaseDate != "" && !ValidYYYYMMDD(r.TaxPurchaseDate) {
		errs = append(errs, "tax purchase date is not a valid YYYYMMDD date")
	}
	if r.Branch5 != "" && !ValidBranch5(r.Branch5) {
		errs = append(errs, "branch code is not 5 digits")
	}
	if r.TaxID13 != "" && !ValidTaxID13(r.TaxID13) {
		errs = append(errs, "tax id is not 13 digits")
	}
	if r.PriceType != "" && !ValidPriceType(r.PriceType) {
		errs = append(errs, "price type is not a recognized code")
	}
	if r.VATRate != "" && !ValidVATRate(r.VATRate) {
		errs = append(errs, "vat rate is not a recognized token")
	}

	return errs
}

// ValidYYYYMMDD reports whether s is an 8-digit date with a plausible
// calendar month and day.
func ValidYYYYMMDD(s string) bool {
	if len(s) != 8 || !allDigits(s) {
		return false
	}
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[4:6])
	d, _ := strconv.Atoi(s[6:8])
	return y >= 2000 && y <= 2099 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// ValidTaxID13 reports whether s is exactly 13 digits.
func ValidTaxID13(s string) bool {
	return len(s) == 13 && allDigits(s)
}

// ValidBranch5 reports whether s is exactly 5 digits.
func ValidBranch5(s string) bool {
	return len(s) == 5 && allDigits(s)
}

// ValidPriceType reports whether s is one of the importer's price type codes:
// 1 = VAT included, 2 = VAT excluded, 3 = no VAT.
func ValidPriceType(s string) bool {
	switch strings.TrimSpace(s) {
	case "1", "2", "3":
		return true
	}
	return false
}

// ValidVATRate reports whether s is a recognized VAT-rate token: the
// "no VAT" family, a percentage like "7%", or a bare number.
func ValidVATRate(s string) bool {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" {
		return false
	}
	switch t {
	case "NO", "NONE", "EXEMPT":
		return true
	}
	t = strings.TrimSuffix(t, "%")
	_, err := strconv.ParseFloat(t, 64)
	return err == nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
