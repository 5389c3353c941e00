package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dvloznov/peak-importer/internal/clients"
	"github.com/dvloznov/peak-importer/internal/config"
	"github.com/dvloznov/peak-importer/internal/logger"
	"github.com/dvloznov/peak-importer/internal/peak"
	"github.com/dvloznov/peak-importer/internal/wallet"
)

const maxDiagErrorLen = 500

// Pipeline turns one document's text into a locked accounting row. All
// collaborators are optional except the registry; a nil classifier routes
// everything through the generic extractor.
type Pipeline struct {
	Classifier Classifier
	Registry   *Registry
	Enhancer   Patcher
	Repairer   Patcher
	Vendors    VendorResolver

	// FillMissingOnEnhance selects the enhancement merge policy: fill only
	// currently-empty fields (true) or overwrite (false).
	FillMissingOnEnhance bool
}

// Result is one document's outcome.
type Result struct {
	Platform string
	Row      *peak.Row
	Errors   []string
}

// ExtractRow runs the full pass: classify, extract, optionally enhance,
// validate, optionally repair, resolve vendor and wallet codes, finalize.
func (p *Pipeline) ExtractRow(ctx context.Context, in Input) Result {
	log := logger.FromContext(ctx)
	if in.Cfg == nil {
		in.Cfg = config.Default()
	}
	clientTaxID := strings.TrimSpace(in.ClientTaxID)
	if clientTaxID == "" {
		clientTaxID = in.Cfg.ResolveClientTaxID()
	}
	in.ClientTaxID = clientTaxID

	route, rawLabel := p.classify(in)
	platform := OutputPlatform(route)
	log.Info().
		Str("platform_raw", rawLabel).
		Str("route", route).
		Str("file", in.Filename).
		Msg("platform classified")

	row := p.extract(ctx, route, in)
	row.Diag["_platform"] = platform
	row.Diag["_platform_route"] = route
	row.Diag["_platform_raw"] = rawLabel
	if in.Filename != "" {
		row.Diag["_filename"] = in.Filename
	}
	if strings.TrimSpace(row.Qty) == "" {
		row.Qty = "1"
	}

	p.enhance(ctx, row, platform, in, log)

	errs := row.Validate()
	if len(errs) > 0 {
		errs = p.repair(ctx, row, platform, in, errs, log)
	}

	p.resolveVendor(row, in.Text, clientTaxID)
	p.resolveWallet(row, in.Text, clientTaxID)

	final := Finalize(row, platform, in.Text, in.Filename, clientTaxID, in.Cfg)
	return Result{Platform: platform, Row: final, Errors: errs}
}

// classify picks the platform route. An explicit hint wins outright; the
// classifier only runs when the caller left the platform open.
func (p *Pipeline) classify(in Input) (route, raw string) {
	if hint := strings.TrimSpace(in.PlatformHint); hint != "" {
		return NormalizeRoute(hint), hint
	}
	raw = PlatformUnknown
	if p.Classifier != nil {
		label, err := p.Classifier.Classify(in.Text, in.Filename)
		if err == nil {
			raw = label
		}
	}
	return NormalizeRoute(raw), raw
}

// extract dispatches to the route's extractor; any extractor error falls
// back to the generic extractor with the error recorded as a diagnostic.
func (p *Pipeline) extract(ctx context.Context, route string, in Input) *peak.Row {
	in.PlatformHint = route
	ex, method := p.Registry.Lookup(route)
	fields, err := ex.Extract(ctx, in)
	if err != nil {
		fields, _ = p.Registry.Generic().Extract(ctx, in)
		row := peak.FromMap(fields)
		row.Diag["_extractor_error"] = truncate(fmt.Sprintf("extract: %v", err), maxDiagErrorLen)
		row.Diag["_extraction_method"] = "generic_error_fallback"
		return row
	}
	row := peak.FromMap(fields)
	row.Diag["_extraction_method"] = method
	return row
}

func (p *Pipeline) enhance(ctx context.Context, row *peak.Row, platform string, in Input, log zerolog.Logger) {
	if p.Enhancer == nil {
		return
	}
	route := row.Diag["_platform_route"]
	if route == RouteMeta || route == RouteGoogle {
		return
	}
	in.PlatformHint = platform
	res, err := p.Enhancer.Patch(ctx, PatchRequest{Input: in})
	if err != nil {
		log.Warn().Err(err).Str("file", in.Filename).Msg("enhancement failed")
		recordPatchError(row, "ai_enhance", err)
		return
	}
	if !res.Applied {
		return
	}
	row.Merge(peak.SanitizePatch(res.Fields), p.FillMissingOnEnhance)
	if m := row.Diag["_extraction_method"]; m != "" {
		row.Diag["_extraction_method"] = m + "+ai"
	}
}

// repair retries once with the validation errors appended to the prompt
// context; the repair patch overwrites, it never fills a quantity twice
// because merge replaces rather than accumulates.
func (p *Pipeline) repair(ctx context.Context, row *peak.Row, platform string, in Input, errs []string, log zerolog.Logger) []string {
	if p.Repairer == nil {
		return errs
	}
	route := row.Diag["_platform_route"]
	if route == RouteMeta || route == RouteGoogle {
		return errs
	}
	in.PlatformHint = platform
	res, err := p.Repairer.Patch(ctx, PatchRequest{Input: in, ValidationErrors: errs})
	if err != nil {
		log.Warn().Err(err).Str("file", in.Filename).Msg("repair failed")
		recordPatchError(row, "ai_repair", err)
		return errs
	}
	if !res.Applied {
		return errs
	}
	row.Merge(peak.SanitizePatch(res.Fields), false)
	return row.Validate()
}

// resolveVendor forces D_vendor_code to the client's canonical Cxxxxx code
// when the resolver knows the vendor.
func (p *Pipeline) resolveVendor(row *peak.Row, text, clientTaxID string) {
	if p.Vendors == nil || clientTaxID == "" {
		return
	}
	vtax := strings.TrimSpace(row.TaxID13)
	vname := strings.TrimSpace(row.VendorCode)
	code, ok := p.Vendors.VendorCode(clientTaxID, vtax, vname)
	if !ok {
		return
	}
	if strings.HasPrefix(code, "C") && len(code) >= 5 {
		row.VendorCode = code
		row.Diag["_client_tax_id_used"] = clientTaxID
		row.Diag["_vendor_tax_id_used"] = vtax
		row.Diag["_vendor_code_resolved"] = code
	}
}

// resolveWallet normalizes Q_payment_method to a wallet code before the
// finalizer runs. An existing EWL code is left alone.
func (p *Pipeline) resolveWallet(row *peak.Row, text, clientTaxID string) {
	cur := strings.TrimSpace(row.PaymentMethod)
	if cur != "" && strings.HasPrefix(strings.ToUpper(cur), "EWL") {
		return
	}
	if clients.Bucket(clientTaxID) == "" {
		return
	}
	q := wallet.Query{
		SellerID: firstNonEmpty(row.Extra["shop_id"], row.Extra["seller_id"], row.Extra["merchant_id"]),
		ShopName: firstNonEmpty(row.Extra["shop_name"], row.Extra["username"], row.Extra["seller_username"]),
		Text:     text,
	}
	if code := wallet.Resolve(clientTaxID, q); code != "" {
		row.PaymentMethod = code
		row.Diag["_wallet_code_resolved"] = code
	}
}

func recordPatchError(row *peak.Row, stage string, err error) {
	msg := truncate(fmt.Sprintf("%s: %v", stage, err), maxDiagErrorLen)
	if prev := row.Diag["_ai_errors"]; prev != "" {
		msg = prev + "; " + msg
	}
	row.Diag["_ai_errors"] = msg
}

// truncate caps s at n bytes without splitting a multi-byte rune, so Thai
// error text stays valid UTF-8 in the diagnostics.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
