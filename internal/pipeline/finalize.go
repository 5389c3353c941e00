package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dvloznov/peak-importer/internal/clients"
	"github.com/dvloznov/peak-importer/internal/config"
	"github.com/dvloznov/peak-importer/internal/peak"
	"github.com/dvloznov/peak-importer/internal/reference"
	"github.com/dvloznov/peak-importer/internal/wallet"
	"github.com/dvloznov/peak-importer/internal/wht"
)

var (
	reDateLabeled = regexp.MustCompile(`(?i)(?:Invoice\s*Date|วันที่(?:ใบกำกับ|เอกสาร|ออกเอกสาร)|Date)\s*[:：]?\s*(20\d{2})[-/](\d{2})[-/](\d{2})`)
	reDateISO     = regexp.MustCompile(`\b(20\d{2})[-/](\d{2})[-/](\d{2})\b`)

	reSellerIDText = regexp.MustCompile(`(?i)(?:seller\s*id|shop\s*id)\s*[:#]?\s*([0-9]{4,})`)
	reUsernameText = regexp.MustCompile(`(?i)(?:username|user\s*name|shop\s*name)\s*[:#]?\s*([A-Za-z0-9_.\-]{3,})`)
)

// Finalize runs the deterministic completion pass over an extracted row and
// locks it to the output schema. The returned row is a new instance; the
// input row is not mutated.
func Finalize(row *peak.Row, platform, text, filename, clientTaxID string, cfg *config.Config) *peak.Row {
	if cfg == nil {
		cfg = config.Default()
	}
	p := strings.ToUpper(strings.TrimSpace(platform))
	if p == "" {
		p = PlatformUnknown
	}
	r := row.Clone()

	// Note is policy-owned and always empty on import.
	r.Note = ""

	// Document date comes from text only. Filenames carry upload dates and
	// hashes, never the document's own date.
	if strings.TrimSpace(r.DocDate) == "" {
		if dd := docDateFromText(text); dd != "" {
			r.DocDate = dd
		}
	}

	ctax := strings.TrimSpace(clientTaxID)
	if ctax == "" {
		ctax = cfg.ResolveClientTaxID()
	}
	if ctax != "" && strings.TrimSpace(r.CompanyName) == "" {
		r.CompanyName = resolveCompanyName(ctax, cfg)
	}

	enforcePlatformRules(r, p)

	srcFile := sourceFilename(filename, r)
	ref := reference.Resolve(p, srcFile, r, text)
	r.Reference = reference.Compact(ref)
	r.InvoiceNo = r.Reference

	sellerID := guessSellerID(r, text)
	username := guessUsername(r, text)
	r.Description = buildDescription(strings.TrimSpace(r.Description), p, sellerID, username, srcFile)

	if strings.TrimSpace(r.PaymentMethod) == "" {
		shopName := firstNonEmpty(
			r.Extra["shop_name"],
			r.Extra["seller_name"],
			r.Extra["username"],
			username,
			srcFile,
		)
		if code := wallet.Resolve(ctax, wallet.Query{SellerID: sellerID, ShopName: shopName, Text: text}); code != "" {
			r.PaymentMethod = code
		}
	}

	if strings.TrimSpace(r.Account) == "" {
		r.Account = resolveGLCode(ctax, p, r, cfg)
	}

	// Minimal defaults that keep the import from rejecting the row.
	if strings.TrimSpace(r.PriceType) == "" {
		if p == RouteMeta || p == RouteGoogle {
			r.PriceType = "3"
		} else {
			r.PriceType = "1"
		}
	}
	if strings.TrimSpace(r.Qty) == "" {
		r.Qty = "1"
	}
	if strings.TrimSpace(r.VATRate) == "" {
		if p == RouteMeta || p == RouteGoogle {
			r.VATRate = "NO"
		} else {
			r.VATRate = "7%"
		}
	}

	wht.Apply(r, cfg.WHT(), text)

	return r.Lock()
}

// enforcePlatformRules fills the platform defaults the extractor left blank
// and pins the marketplace expense group.
func enforcePlatformRules(r *peak.Row, p string) {
	if g, ok := PlatformGroups[p]; ok && strings.TrimSpace(r.Group) == "" {
		r.Group = g
	}
	if strings.TrimSpace(r.Description) == "" {
		if d := PlatformDescriptions[p]; d != "" {
			r.Description = d
		}
	}
	switch p {
	case RouteMeta, RouteGoogle:
		if strings.TrimSpace(r.VATRate) == "" {
			r.VATRate = "NO"
		}
		if strings.TrimSpace(r.PriceType) == "" {
			r.PriceType = "3"
		}
	case RouteShopee, RouteLazada, RouteTikTok, RouteSPX:
		if strings.TrimSpace(r.VATRate) == "" {
			r.VATRate = "7%"
		}
		if strings.TrimSpace(r.PriceType) == "" {
			r.PriceType = "1"
		}
		r.Group = "Marketplace Expense"
		// An extractor sometimes copies the group label into the account
		// column; the GL chain must fill it instead.
		if strings.TrimSpace(r.Account) == "Marketplace Expense" {
			r.Account = ""
		}
	}
}

func docDateFromText(text string) string {
	if text == "" {
		return ""
	}
	if m := reDateLabeled.FindStringSubmatch(text); m != nil {
		if d := yyyymmdd(m[1], m[2], m[3]); d != "" {
			return d
		}
	}
	if m := reDateISO.FindStringSubmatch(text); m != nil {
		return yyyymmdd(m[1], m[2], m[3])
	}
	return ""
}

func yyyymmdd(y, m, d string) string {
	s := y + m + d
	if peak.ValidYYYYMMDD(s) {
		return s
	}
	return ""
}

// resolveCompanyName picks the display name: config map, then environment
// override per company tag, then the builtin default.
func resolveCompanyName(clientTaxID string, cfg *config.Config) string {
	if v := strings.TrimSpace(cfg.CompanyNameByTaxID[clientTaxID]); v != "" {
		return v
	}
	if tag := clients.DefaultCompanyName[clientTaxID]; tag != "" {
		if v := strings.TrimSpace(os.Getenv("COMPANY_NAME_" + tag)); v != "" {
			return v
		}
	}
	return clients.DefaultCompanyName[clientTaxID]
}

// resolveGLCode walks the account-code priority chain: per-company config
// (flat or per platform bucket), environment override, the extractor's own
// value, then the expense group label.
func resolveGLCode(clientTaxID, platform string, r *peak.Row, cfg *config.Config) string {
	if entry, ok := cfg.GLCodeMap[clientTaxID]; ok {
		if v := entry.Code(glBucket(platform)); v != "" {
			return v
		}
	}
	if tag := clients.DefaultCompanyName[clientTaxID]; tag != "" {
		if v := strings.TrimSpace(os.Getenv("GL_CODE_" + tag)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(r.Account); v != "" {
		return v
	}
	return strings.TrimSpace(r.Group)
}

func sourceFilename(filename string, r *peak.Row) string {
	if filename != "" {
		return filepath.Base(filename)
	}
	for _, k := range []string{"_filename", "filename", "source_file", "_source_file", "_file", "file"} {
		if v, ok := r.Diag[k]; ok && v != "" {
			return filepath.Base(v)
		}
		if v, ok := r.Extra[k]; ok && v != "" {
			return filepath.Base(v)
		}
	}
	return ""
}

func guessSellerID(r *peak.Row, text string) string {
	for _, k := range []string{"seller_id", "sellerId", "shop_id", "shopid", "shopId", "merchant_id", "merchantId"} {
		if v := strings.TrimSpace(r.Extra[k]); v != "" {
			return v
		}
	}
	if m := reSellerIDText.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func guessUsername(r *peak.Row, text string) string {
	for _, k := range []string{"username", "user_name", "seller_username", "shop_name", "shopName", "sellerName"} {
		if v := strings.TrimSpace(r.Extra[k]); v != "" {
			return v
		}
	}
	if m := reUsernameText.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// buildDescription assembles "<base> — SellerID=x | Username=y | File=z"
// from whichever tags are present.
func buildDescription(baseDesc, platform, sellerID, username, srcFile string) string {
	parts := make([]string, 0, 2)
	bd := strings.TrimSpace(baseDesc)
	if bd == "" {
		bd = PlatformDescriptions[strings.ToUpper(platform)]
	}
	if bd != "" {
		parts = append(parts, bd)
	}

	tags := make([]string, 0, 3)
	if sellerID != "" {
		tags = append(tags, fmt.Sprintf("SellerID=%s", sellerID))
	}
	if username != "" {
		tags = append(tags, fmt.Sprintf("Username=%s", username))
	}
	if srcFile != "" {
		tags = append(tags, fmt.Sprintf("File=%s", srcFile))
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " | "))
	}
	return strings.TrimSpace(strings.Join(parts, " — "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
