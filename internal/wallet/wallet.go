// Package wallet resolves a merchant/seller identity to an internal payment
// wallet code (EWLnnn) for one of our operating companies. Resolution is a
// lookup, never a guess: when nothing matches it returns "" and the caller
// marks the row for manual review. The resolver never returns a platform
// name.
package wallet

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/peak-importer/internal/clients"
)

var (
	reWalletCode = regexp.MustCompile(`(?i)^EWL\d{3}$`)
	reWS         = regexp.MustCompile(`\s+`)
	reNonWord    = regexp.MustCompile(`[^\w]+`)
	reQuotes     = regexp.MustCompile("[\"'`“”‘’()\\[\\]{}<>]+")

	// Seller/shop id patterns for document text. Shopee ids are digit runs
	// behind a label; Lazada/TikTok ids are bare TH-prefixed codes.
	reSellerIDLabeled = regexp.MustCompile(`(?i)\b(?:seller|shop|merchant|store)\s*(?:id)?\s*[:#=\-]?\s*([0-9๐-๙][0-9๐-๙\s,\-]{4,30})\b`)
	reSellerIDTH      = regexp.MustCompile(`(?i)\b(TH[0-9A-Z]{6,})\b`)
)

var thaiDigits = strings.NewReplacer(
	"๐", "0", "๑", "1", "๒", "2", "๓", "3", "๔", "4",
	"๕", "5", "๖", "6", "๗", "7", "๘", "8", "๙", "9",
)

// Query carries the identity signals available for one document.
type Query struct {
	SellerID string // explicit merchant/seller/shop id, any script
	ShopName string // merchant display name or username
	Text     string // raw document text, lowest-confidence fallback
}

// Resolve maps (client tax id, merchant identity) to a wallet code, or ""
// when unresolved. Resolution order: direct id lookup, id extracted from
// text, shop-name keyword, then keyword over the whole text.
func Resolve(clientTaxID string, q Query) string {
	bucket := clients.Bucket(clientTaxID)
	if bucket == "" {
		return ""
	}
	byID, byShop := tablesForBucket(bucket)

	sid := NormalizeID(q.SellerID)
	if sid != "" {
		if code := byID[sid]; validCode(code) {
			return code
		}
	}

	if sid == "" && q.Text != "" {
		if sid = ExtractSellerID(q.Text); sid != "" {
			if code := byID[sid]; validCode(code) {
				return code
			}
		}
	}

	if shop := normalizeShopName(q.ShopName); shop != "" {
		if code := matchShopKeyword(shop, byShop); code != "" {
			return code
		}
	}

	if q.Text != "" {
		if code := matchShopKeyword(normalizeShopName(q.Text), byShop); code != "" {
			return code
		}
	}

	return ""
}

// NormalizeID canonicalizes a seller/shop id: Thai digits become Arabic,
// separators are stripped, digit-only ids stay digits, and alphanumeric ids
// are uppercased.
func NormalizeID(s string) string {
	s = normText(s)
	if s == "" {
		return ""
	}
	s = reNonWord.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	if allDigits(s) {
		return s
	}
	return strings.ToUpper(s)
}

// ExtractSellerID pulls a seller/shop id out of document text: a labeled
// digit run of at least 5 digits, else a TH-prefixed alphanumeric code.
func ExtractSellerID(text string) string {
	t := normText(text)
	if t == "" {
		return ""
	}
	if m := reSellerIDLabeled.FindStringSubmatch(t); m != nil {
		sid := NormalizeID(m[1])
		if sid != "" && allDigits(sid) && len(sid) >= 5 {
			return sid
		}
	}
	if m := reSellerIDTH.FindStringSubmatch(t); m != nil {
		return NormalizeID(m[1])
	}
	return ""
}

func normText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = thaiDigits.Replace(s)
	return strings.TrimSpace(reWS.ReplaceAllString(s, " "))
}

func normalizeShopName(name string) string {
	s := strings.ToLower(normText(name))
	if s == "" {
		return ""
	}
	s = reQuotes.ReplaceAllString(s, " ")
	return strings.TrimSpace(reWS.ReplaceAllString(s, " "))
}

// matchShopKeyword tries keywords longest-first so a specific multi-word key
// beats a shorter substring key, then skips guard entries mapped to "".
func matchShopKeyword(shopNorm string, byShop map[string]string) string {
	if shopNorm == "" || len(byShop) == 0 {
		return ""
	}
	keys := make([]string, 0, len(byShop))
	for k := range byShop {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		code := byShop[k]
		if !validCode(code) {
			continue
		}
		if strings.Contains(shopNorm, k) {
			return code
		}
	}
	return ""
}

func validCode(code string) bool {
	return code != "" && reWalletCode.MatchString(strings.TrimSpace(code))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
