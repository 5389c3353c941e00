package extractors

import "regexp"

// platformSignals maps a platform label to the markers that identify its
// documents. Filename markers count double: uploads are usually named after
// their source export.
var platformSignals = map[string][]*regexp.Regexp{
	"SHOPEE": {
		regexp.MustCompile(`(?i)\bshopee\b`),
		regexp.MustCompile(`\bTRS[A-Z0-9]{2,}`),
		regexp.MustCompile(`\bRCS[A-Z0-9]{2,}`),
	},
	"LAZADA": {
		regexp.MustCompile(`(?i)\blazada\b`),
		regexp.MustCompile(`(?i)\bTHMPTI\d{6,}`),
	},
	"TIKTOK": {
		regexp.MustCompile(`(?i)\btiktok\b`),
		regexp.MustCompile(`(?i)\bTTSTH\d{8,}`),
	},
	"SPX": {
		regexp.MustCompile(`(?i)\bSPX\b`),
		regexp.MustCompile(`(?i)shopee\s*express`),
	},
	"META": {
		regexp.MustCompile(`(?i)\bmeta\s*platforms?\b`),
		regexp.MustCompile(`(?i)\bfacebook\b`),
		regexp.MustCompile(`(?i)\bmeta\s*ads?\b`),
	},
	"GOOGLE": {
		regexp.MustCompile(`(?i)\bgoogle\b`),
		regexp.MustCompile(`(?i)\badwords\b`),
	},
	"THAI_TAX": {
		regexp.MustCompile(`ใบกำกับภาษี`),
		regexp.MustCompile(`(?i)\btax\s*invoice\b`),
	},
}

// signalOrder breaks score ties deterministically: marketplaces before the
// catch-all Thai tax invoice label, which most marketplace documents also
// carry.
var signalOrder = []string{"SHOPEE", "LAZADA", "TIKTOK", "SPX", "META", "GOOGLE", "THAI_TAX"}

// KeywordClassifier labels documents by counting platform markers in the
// text and filename.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(text, filename string) (string, error) {
	scores := make(map[string]int, len(platformSignals))
	for label, pats := range platformSignals {
		for _, p := range pats {
			if p.MatchString(text) {
				scores[label]++
			}
			if p.MatchString(filename) {
				scores[label] += 2
			}
		}
	}
	best, bestScore := "UNKNOWN", 0
	for _, label := range signalOrder {
		if s := scores[label]; s > bestScore {
			best, bestScore = label, s
		}
	}
	// SPX invoices mention Shopee by name; an explicit express marker wins.
	if best == "SHOPEE" && scores["SPX"] >= scores["SHOPEE"] && scores["SPX"] > 0 {
		best = "SPX"
	}
	return best, nil
}
