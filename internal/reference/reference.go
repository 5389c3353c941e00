// Package reference picks the single most trustworthy document reference
// from the noisy candidates a document offers: extractor fields, patterns in
// the document text, and the source filename. Marketplace files are often
// renamed to content hashes during upload, so a hash-shaped string is never
// chosen when any structural alternative exists.
package reference

import (
	"regexp"
	"strings"

	"github.com/dvloznov/peak-importer/internal/peak"
)

// Structural document-number shapes, most specific first.
var (
	reTRSCore   = regexp.MustCompile(`(?i)(TRS[A-Z0-9\-_/.]{10,})`)
	reRCSCore   = regexp.MustCompile(`(?i)(RCS[A-Z0-9\-_/.]{10,})`)
	reTTSTHCore = regexp.MustCompile(`(?i)(TTSTH\d{8,})`)
	reLazInv    = regexp.MustCompile(`(?i)\b(THMPTI\d{10,})\b`)

	// 32 hex chars: a file-content hash, not a document number.
	reHash32 = regexp.MustCompile(`(?i)^[a-f0-9]{32}$`)

	reNoisePrefix = regexp.MustCompile(`(?i)^(?:Shopee-)?TI[VR]-|^Shopee-|^TIV-|^TIR-|^SPX-|^LAZ-|^LZD-|^TikTok-`)
	reExt         = regexp.MustCompile(`(?i)\.(pdf|png|jpg|jpeg|xlsx|xls)$`)
	reAllWS       = regexp.MustCompile(`\s+`)
	reLongAlnum   = regexp.MustCompile(`(?i)^[A-Z0-9\-_/.]+$`)

	reInvNoBlock = regexp.MustCompile(`(?i)(?:Invoice\s*No\.?|Tax\s*Invoice\s*/\s*Receipt|Receipt\s*No\.?)\s*[:：]?\s*([A-Z0-9\-_/.]{8,})`)
)

// Compact removes all whitespace from v.
func Compact(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	return reAllWS.ReplaceAllString(s, "")
}

func stripExt(s string) string {
	return strings.TrimSpace(reExt.ReplaceAllString(s, ""))
}

// NormalizeCore reduces a raw reference/filename to its document-number core:
//
//	"Shopee-TIV-TRSPEMKP00-00000-251203-0012589.pdf" → "TRSPEMKP00-00000-251203-0012589"
//	"SPX Express-RCT-RCSPXSPR00-00000-251205-0000625.pdf" → "RCSPXSPR00-00000-251205-0000625"
func NormalizeCore(value string) string {
	s := Compact(value)
	if s == "" {
		return ""
	}
	s = stripExt(s)

	for _, pat := range []*regexp.Regexp{reTRSCore, reRCSCore, reTTSTHCore, reLazInv} {
		if m := pat.FindStringSubmatch(s); m != nil {
			return Compact(m[1])
		}
	}

	s2 := strings.TrimSpace(reNoisePrefix.ReplaceAllString(s, ""))
	s2 = stripExt(s2)
	if s2 != "" {
		return Compact(s2)
	}
	return Compact(s)
}

// IsHash reports whether s looks like a 32-hex file-content hash.
func IsHash(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && reHash32.MatchString(s)
}

// CandidatesFromText extracts normalized reference candidates from document
// text: explicit Lazada invoice numbers, labeled "Invoice No." blocks, then
// structural cores. Duplicates are removed preserving first-seen order.
func CandidatesFromText(text string) []string {
	if text == "" {
		return nil
	}
	var out []string

	for _, m := range reLazInv.FindAllStringSubmatch(text, -1) {
		out = append(out, NormalizeCore(m[1]))
	}
	for _, m := range reInvNoBlock.FindAllStringSubmatch(text, -1) {
		out = append(out, NormalizeCore(m[1]))
	}
	for _, pat := range []*regexp.Regexp{reTRSCore, reRCSCore, reTTSTHCore} {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			out = append(out, NormalizeCore(m[1]))
		}
	}

	return dedup(out)
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, x := range in {
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}

// Score rates a candidate by shape specificity. Higher is more trustworthy;
// hash-shaped candidates score lowest of all.
func Score(platform, ref string) int {
	p := strings.ToUpper(strings.TrimSpace(platform))
	r := strings.TrimSpace(ref)
	if r == "" {
		return 0
	}
	if IsHash(r) {
		return 5
	}
	switch {
	case matchesFull(reTRSCore, r):
		return 100
	case matchesFull(reRCSCore, r):
		return 95
	case matchesFull(reLazInv, r):
		return 90
	case matchesFull(reTTSTHCore, r):
		return 85
	}
	if p == "LAZADA" && strings.HasPrefix(strings.ToUpper(r), "TH") && len(r) >= 12 {
		return 80
	}
	if len(r) >= 10 && reLongAlnum.MatchString(r) {
		return 60
	}
	return 30
}

// anchored-at-start match, mirroring how the cores are recognized.
func matchesFull(pat *regexp.Regexp, s string) bool {
	loc := pat.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

// Resolve collects candidates in trust order (extractor invoice field,
// extractor reference field, text-derived matches, filename core), scores
// them, and returns the winner. Ties keep the earliest candidate, and a
// hash-shaped winner is replaced by the first non-hash candidate: a hash is
// never acceptable when any alternative exists. Returns "" when no candidate
// survives normalization.
func Resolve(platform, srcFile string, row *peak.Row, text string) string {
	var cands []string

	if row != nil {
		if g := NormalizeCore(row.InvoiceNo); g != "" {
			cands = append(cands, g)
		}
		if c := NormalizeCore(row.Reference); c != "" {
			cands = append(cands, c)
		}
	}

	cands = append(cands, CandidatesFromText(text)...)

	if srcFile != "" {
		if f := NormalizeCore(srcFile); f != "" {
			cands = append(cands, f)
		}
	}

	cands = dedup(cands)
	if len(cands) == 0 {
		return ""
	}

	best := cands[0]
	bestScore := Score(platform, best)
	for _, ref := range cands[1:] {
		if sc := Score(platform, ref); sc > bestScore {
			best = ref
			bestScore = sc
		}
	}

	if IsHash(best) {
		for _, ref := range cands {
			if !IsHash(ref) {
				best = ref
				break
			}
		}
	}

	return Compact(best)
}
