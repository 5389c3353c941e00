// Package extractors holds the rule-based platform extractors. Each one
// reads document text and returns raw field guesses keyed by output-schema
// column names plus "_"-prefixed hints; reconciliation, defaults, and
// locking happen downstream.
package extractors

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/peak-importer/internal/pipeline"
)

var (
	reTikTokInvoiceNo = regexp.MustCompile(`(?i)\bTTSTH\d{8,}\b`)
	reInvoiceNoLine   = regexp.MustCompile(`(?i)invoice\s*(?:no|number)\s*[:：#\-]?\s*([A-Za-z0-9][A-Za-z0-9\-_/]{6,})`)
	reInvoiceDateLine = regexp.MustCompile(`(?i)invoice\s*date\s*[:：\-]?\s*(.+)`)

	reVendorTaxLine = regexp.MustCompile(`(?i)tax\s*registration\s*number\s*[:：\-]?\s*(\d{13})`)
	reTaxID13Any    = regexp.MustCompile(`\b\d{13}\b`)
	reBranchLine    = regexp.MustCompile(`(?i)(?:branch|สาขา)\s*[:\-]?\s*(\d{1,5})`)

	reDateYMD      = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	reDateMonDD    = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),\s*(\d{4})\b`)
	reMoney        = regexp.MustCompile(`(-?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|-?\d+(?:\.\d{1,2})?)`)
	reTotalIncl    = regexp.MustCompile(`(?i)(total\s*amount\s*\(\s*including\s*vat\s*\)|total\s*amount.*including\s*vat|amount\s*in\s*thb\s*\(\s*including\s*vat\s*\)|grand\s*total|amount\s*due)`)
	reTotalVAT     = regexp.MustCompile(`(?i)(total\s*vat\s*7%|total\s*vat|vat\s*amount|value\s*added\s*tax)`)
	reSubtotalExcl = regexp.MustCompile(`(?i)(subtotal\s*\(\s*excluding\s*vat\s*\)|subtotal.*excluding\s*vat|total.*excluding\s*vat|amount\s*in\s*thb\s*\(\s*excluding\s*vat\s*\))`)

	reWHTAmounting = regexp.MustCompile(`(?is)(?:withheld\s*tax|withholding\s*tax).*?rate\s*of\s*(\d{1,2})\s*%.*?amounting\s*to\s*฿?\s*([0-9,]+(?:\.[0-9]{1,2})?)`)
	reWHTGeneric   = regexp.MustCompile(`(?is)(?:withheld|withholding|wht|ภาษี\s*ณ\s*ที่\s*จ่าย).*?(\d{1,2})\s*%.*?(?:฿|THB)?\s*([0-9,]+(?:\.[0-9]{1,2})?)`)

	reAdsHint = regexp.MustCompile(`(?i)\b(ads|advertising|promotion|โฆษณา|ค่าโฆษณา)\b`)
	reAllWS   = regexp.MustCompile(`\s+`)

	monthNum = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

// TikTok extracts TikTok Shop tax invoices and receipts. These documents
// carry a TTSTH invoice number, a 13-digit vendor tax registration, a VAT
// summary block, and often a 3% withholding footer.
type TikTok struct{}

func (TikTok) Extract(ctx context.Context, in pipeline.Input) (map[string]string, error) {
	t := normalizeText(in.Text)
	row := tiktokBlankRow()
	if strings.TrimSpace(t) == "" {
		return row, nil
	}

	if inv := tiktokInvoiceNo(t); inv != "" {
		row["C_reference"] = inv
		row["G_invoice_no"] = inv
	}

	row["E_tax_id_13"] = vendorTaxID(t, in.ClientTaxID)

	if m := reBranchLine.FindStringSubmatch(t); m != nil {
		if br := cleanDigits(m[1], 5); br != "" {
			row["F_branch_5"] = zfill(br, 5)
		}
	}

	if dd := tiktokDocDate(t); dd != "" {
		row["B_doc_date"] = dd
		row["H_invoice_date"] = dd
		row["I_tax_purchase_date"] = dd
	}

	subtotal, vatAmt, totalIncl := amountsSummary(t)
	// Gross including VAT goes into the paid amount; the withholding pass
	// downstream nets it.
	if totalIncl != "" {
		row["N_unit_price"] = totalIncl
		row["R_paid_amount"] = totalIncl
	}
	if subtotal != "" {
		row["_subtotal_ex_vat"] = subtotal
	}
	if vatAmt != "" {
		row["_vat_amount"] = vatAmt
	}

	if _, amt := whtFromText(t); amt != "" {
		row["P_wht"] = amt
	}

	if reAdsHint.MatchString(t) {
		row["U_group"] = "Advertising Expense"
	} else {
		row["U_group"] = "Marketplace Expense"
	}

	return row, nil
}

func tiktokBlankRow() map[string]string {
	return map[string]string{
		"D_vendor_code": "Unknown",
		"F_branch_5":    "00000",
		"J_price_type":  "1",
		"M_qty":         "1",
		"N_unit_price":  "0",
		"O_vat_rate":    "7%",
		"R_paid_amount": "0",
		"U_group":       "Marketplace Expense",
	}
}

func tiktokInvoiceNo(t string) string {
	if m := reTikTokInvoiceNo.FindString(t); m != "" {
		return compactNoWS(m)
	}
	if m := reInvoiceNoLine.FindStringSubmatch(t); m != nil {
		return compactNoWS(m[1])
	}
	return ""
}

// vendorTaxID prefers the labeled registration line; otherwise the first
// 13-digit run that is not the operating company's own id.
func vendorTaxID(t, clientTaxID string) string {
	if m := reVendorTaxLine.FindStringSubmatch(t); m != nil {
		return cleanDigits(m[1], 13)
	}
	ctax := cleanDigits(clientTaxID, 13)
	for _, x := range reTaxID13Any.FindAllString(t, -1) {
		x13 := cleanDigits(x, 13)
		if x13 == "" || x13 == ctax {
			continue
		}
		return x13
	}
	return ""
}

func tiktokDocDate(t string) string {
	if m := reInvoiceDateLine.FindStringSubmatch(t); m != nil {
		if d := dateFromText(m[1]); d != "" {
			return d
		}
	}
	return dateFromText(t)
}

// amountsSummary reads the VAT summary block: subtotal excluding VAT, VAT
// amount, total including VAT. A missing total is derived from the parts.
func amountsSummary(t string) (subtotal, vatAmt, totalIncl string) {
	subtotal = amountNearKeyword(t, reSubtotalExcl)
	vatAmt = amountNearKeyword(t, reTotalVAT)
	totalIncl = amountNearKeyword(t, reTotalIncl)

	if totalIncl == "" && subtotal != "" && vatAmt != "" {
		s, err1 := strconv.ParseFloat(subtotal, 64)
		v, err2 := strconv.ParseFloat(vatAmt, 64)
		if err1 == nil && err2 == nil {
			totalIncl = fmt.Sprintf("%.2f", s+v)
		}
	}
	if totalIncl == "" {
		totalIncl = subtotal
	}
	return subtotal, vatAmt, totalIncl
}

// whtFromText returns (rate percent, amount) when the footer states the
// withheld tax explicitly.
func whtFromText(t string) (rate, amount string) {
	if m := reWHTAmounting.FindStringSubmatch(t); m != nil {
		r, a := cleanDigits(m[1], 2), moneyToStr(m[2])
		if r != "" && a != "" {
			return r, a
		}
	}
	if m := reWHTGeneric.FindStringSubmatch(t); m != nil {
		r, a := cleanDigits(m[1], 2), moneyToStr(m[2])
		if r != "" && a != "" {
			return r, a
		}
	}
	return "", ""
}

func dateFromText(s string) string {
	if m := reDateYMD.FindStringSubmatch(s); m != nil {
		if d := ymd(m[1], m[2], m[3]); d != "" {
			return d
		}
	}
	if m := reDateMonDD.FindStringSubmatch(s); m != nil {
		mon := monthNum[strings.ToLower(m[1])]
		return ymdInts(atoi(m[3]), mon, atoi(m[2]))
	}
	return ""
}

func ymd(y, mo, d string) string {
	return ymdInts(atoi(y), atoi(mo), atoi(d))
}

func ymdInts(y, mo, d int) string {
	if y < 1900 || y > 2100 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return ""
	}
	return fmt.Sprintf("%04d%02d%02d", y, mo, d)
}

// amountNearKeyword finds the last money token near a keyword block,
// looking 120 runes back and 280 forward.
func amountNearKeyword(t string, keyword *regexp.Regexp) string {
	loc := keyword.FindStringIndex(t)
	if loc == nil {
		return ""
	}
	start := loc[0] - 120
	if start < 0 {
		start = 0
	}
	end := loc[1] + 280
	if end > len(t) {
		end = len(t)
	}
	nums := reMoney.FindAllString(t[start:end], -1)
	if len(nums) == 0 {
		return ""
	}
	return moneyToStr(nums[len(nums)-1])
}

func moneyToStr(v string) string {
	s := strings.TrimSpace(v)
	s = strings.NewReplacer(",", "", "฿", "", "THB", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || x < 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", x)
}

func cleanDigits(s string, maxLen int) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

func zfill(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func compactNoWS(v string) string {
	return reAllWS.ReplaceAllString(strings.TrimSpace(v), "")
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
