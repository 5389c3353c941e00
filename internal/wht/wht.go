// Package wht implements the withholding-tax policy: decide whether
// withholding applies to a row, determine its amount (detected in the
// document text or computed from configuration), and derive the net payable
// amount from the gross, tax-inclusive amount.
package wht

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/peak-importer/internal/peak"
)

// Config controls the policy. Zero value means: no detection, no
// calculation. Use Default() for the production defaults.
type Config struct {
	// Calculate enables the fallback computation base × Rate when no
	// withholding amount was supplied or detected.
	Calculate bool

	// AutoDetect enables searching the document text for withholding
	// phrasing. On by default.
	AutoDetect bool

	// Rate is the fallback withholding rate as a fraction (0.03 = 3%).
	Rate float64

	// PNDWhenWHT and PNDWhenNoWHT are the filing codes applied when
	// withholding is present or absent, only if the row has none yet.
	PNDWhenWHT   string
	PNDWhenNoWHT string

	// OverrideExisting lets detection or calculation replace a withholding
	// value the extractor already supplied.
	OverrideExisting bool
}

// Default returns the production policy: auto-detection on, calculation off,
// 3% fallback rate, filing code 53 either way.
func Default() Config {
	return Config{
		AutoDetect:   true,
		Rate:         0.03,
		PNDWhenWHT:   "53",
		PNDWhenNoWHT: "53",
	}
}

// Bilingual withholding phrasing: a percentage followed by a monetary
// amount within a short window.
var (
	reWHTThai = regexp.MustCompile(`(?i)(?:หักภาษี\s*ณ\s*ที่จ่าย|ภาษีหัก\s*ณ\s*ที่จ่าย)[^\d%]{0,40}(\d{1,2}(?:\.\d+)?)\s*%[^\d]{0,40}([\d,]+\.\d{2}|\d+)`)
	reWHTEn   = regexp.MustCompile(`(?i)(?:withholding\s*tax|withheld\s*tax)[^\d%]{0,40}(\d{1,2}(?:\.\d+)?)\s*%[^\d]{0,40}([\d,]+\.\d{2}|\d+)`)
)

// DetectFromText searches text for withholding phrasing and returns the
// declared rate (as a fraction) and amount, or zeros when absent. The
// amount is authoritative; the rate is diagnostic only.
func DetectFromText(text string) (rate, amount float64) {
	if text == "" {
		return 0, 0
	}
	for _, pat := range []*regexp.Regexp{reWHTThai, reWHTEn} {
		if m := pat.FindStringSubmatch(text); m != nil {
			return ToFloat(m[1]) / 100.0, ToFloat(m[2])
		}
	}
	return 0, 0
}

// ParseVATRate accepts the flexible textual VAT-rate forms:
// "7%" → 0.07, "NO"/"NONE"/"EXEMPT"/"0" → 0, "7" → 0.07, "0.07" → 0.07.
// Bare numbers at most 1 are fractions; above 1 they are percentages.
func ParseVATRate(v string) float64 {
	s := strings.ToUpper(strings.TrimSpace(v))
	if s == "" {
		return 0
	}
	switch s {
	case "NO", "NONE", "0", "0%", "EXEMPT":
		return 0
	}
	if strings.HasSuffix(s, "%") {
		return ToFloat(strings.TrimSuffix(s, "%")) / 100.0
	}
	x := ToFloat(s)
	if x > 1.0 {
		return x / 100.0
	}
	return x
}

// ToFloat parses a monetary string, tolerating thousands separators.
// Unparseable input yields 0.
func ToFloat(v string) float64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Format2 renders a monetary value with two decimals.
func Format2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// round2 rounds to two decimals with a small positive bias so binary
// representation noise at the .005 boundary rounds up, matching how the
// amounts were produced upstream.
func round2(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}

// Summary carries tax-exclusive/inclusive amounts independently parsed from
// the document, when an extractor provides them. Zero fields mean unknown.
type Summary struct {
	SubtotalExVAT float64
	VATAmount     float64
	TotalInclVAT  float64
}

// Keyword shapes for amount summaries, shared by extractors.
var (
	reSubtotalExcl = regexp.MustCompile(`(?i)(subtotal\s*\(\s*excluding\s*vat\s*\)|subtotal.*excluding\s*vat|total.*excluding\s*vat|amount\s*in\s*thb\s*\(\s*excluding\s*vat\s*\))`)
	reTotalVAT     = regexp.MustCompile(`(?i)(total\s*vat\s*7%|total\s*vat|vat\s*amount|value\s*added\s*tax)`)
	reTotalIncl    = regexp.MustCompile(`(?i)(total\s*amount\s*\(\s*including\s*vat\s*\)|total\s*amount.*including\s*vat|amount\s*in\s*thb\s*\(\s*including\s*vat\s*\)|grand\s*total|amount\s*due)`)
	reMoney        = regexp.MustCompile(`(-?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|-?\d+(?:\.\d{1,2})?)`)
)

// ParseSummary extracts a subtotal/VAT/total summary from document text by
// reading the last amount near each keyword block. Missing totals are
// derived from subtotal + VAT when both are present.
func ParseSummary(text string) Summary {
	var s Summary
	if text == "" {
		return s
	}
	s.SubtotalExVAT = amountNearKeyword(text, reSubtotalExcl)
	s.VATAmount = amountNearKeyword(text, reTotalVAT)
	s.TotalInclVAT = amountNearKeyword(text, reTotalIncl)

	if s.TotalInclVAT <= 0 && s.SubtotalExVAT > 0 && s.VATAmount > 0 {
		s.TotalInclVAT = round2(s.SubtotalExVAT + s.VATAmount)
	}
	return s
}

func amountNearKeyword(text string, keyword *regexp.Regexp) float64 {
	loc := keyword.FindStringIndex(text)
	if loc == nil {
		return 0
	}
	start := loc[0] - 120
	if start < 0 {
		start = 0
	}
	end := loc[1] + 280
	if end > len(text) {
		end = len(text)
	}
	nums := reMoney.FindAllString(text[start:end], -1)
	if len(nums) == 0 {
		return 0
	}
	v := ToFloat(nums[len(nums)-1])
	if v < 0 {
		return 0
	}
	return v
}

// Apply runs the policy against the row in place.
//
// Gross is the tax-inclusive total: the paid-amount field, falling back to
// the unit-price field, then to the parsed text summary. The withholding
// amount comes, in order, from the extractor (kept unless override), text
// detection, then fallback calculation on the tax-exclusive base. When a
// positive withholding results, paid amount becomes gross − withholding
// (clamped at zero) and the filing code defaults to the has-withholding
// code. Monetary diagnostics are recorded under "_wht_*" keys.
func Apply(row *peak.Row, cfg Config, text string) {
	vat := ParseVATRate(row.VATRate)

	curWHT := ToFloat(row.WHT)

	gross := ToFloat(row.PaidAmount)
	if gross <= 0 {
		gross = ToFloat(row.UnitPrice)
	}

	sum := ParseSummary(text)
	if gross <= 0 && sum.TotalInclVAT > 0 {
		gross = sum.TotalInclVAT
	}
	if gross <= 0 && sum.SubtotalExVAT > 0 && sum.VATAmount > 0 {
		gross = round2(sum.SubtotalExVAT + sum.VATAmount)
	}

	if cfg.AutoDetect && (cfg.OverrideExisting || curWHT <= 0) {
		detectedRate, detectedAmt := DetectFromText(text)
		if detectedAmt > 0 {
			row.WHT = Format2(round2(detectedAmt))
			curWHT = detectedAmt
			row.Set("_wht_detected_rate", fmt.Sprintf("%.4f", detectedRate))
			row.Set("_wht_detected_amount", Format2(detectedAmt))
		}
	}

	if cfg.Calculate && (cfg.OverrideExisting || curWHT <= 0) {
		baseExVAT := 0.0
		switch {
		case sum.SubtotalExVAT > 0:
			baseExVAT = sum.SubtotalExVAT
		case gross > 0 && vat > 0:
			baseExVAT = gross / (1.0 + vat)
		case gross > 0:
			baseExVAT = gross
		}
		if baseExVAT > 0 {
			amount := baseExVAT * cfg.Rate
			if amount < 0 {
				amount = 0
			}
			amount = round2(amount)
			row.WHT = Format2(amount)
			curWHT = amount
			row.Set("_wht_calc_rate", fmt.Sprintf("%.4f", cfg.Rate))
			row.Set("_wht_calc_base_ex_vat", Format2(round2(baseExVAT)))
		}
	}

	if curWHT > 0 {
		if gross > 0 {
			row.Set("_gross_amount_before_wht", Format2(round2(gross)))
			net := gross - curWHT
			if net < 0 {
				net = 0
			}
			row.PaidAmount = Format2(round2(net))
		}
		if strings.TrimSpace(row.PND) == "" {
			row.PND = cfg.PNDWhenWHT
		}
		return
	}

	// No withholding resulted. Blank the field rather than letting a stale
	// value reach the import file; an extractor's literal "0.00" counts as
	// stale too, the import reads blank and zero the same way.
	if !cfg.Calculate && curWHT <= 0 {
		row.WHT = ""
	}
	if strings.TrimSpace(row.PND) == "" {
		row.PND = cfg.PNDWhenNoWHT
	}
}
