package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dvloznov/peak-importer/internal/clients"
	"github.com/dvloznov/peak-importer/internal/config"
)

type mockClassifier struct {
	label string
	err   error
}

func (m *mockClassifier) Classify(text, filename string) (string, error) {
	return m.label, m.err
}

type mockPatcher struct {
	result PatchResult
	err    error
	calls  int
	lastRq PatchRequest
}

func (m *mockPatcher) Patch(ctx context.Context, req PatchRequest) (PatchResult, error) {
	m.calls++
	m.lastRq = req
	return m.result, m.err
}

type mockVendors struct {
	code string
	ok   bool
}

func (m *mockVendors) VendorCode(clientTaxID, vendorTaxID, vendorName string) (string, bool) {
	return m.code, m.ok
}

func staticExtractor(fields map[string]string) Extractor {
	return ExtractorFunc(func(ctx context.Context, in Input) (map[string]string, error) {
		out := make(map[string]string, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out, nil
	})
}

func failingExtractor(msg string) Extractor {
	return ExtractorFunc(func(ctx context.Context, in Input) (map[string]string, error) {
		return nil, errors.New(msg)
	})
}

func newTestRegistry() *Registry {
	return NewRegistry(staticExtractor(map[string]string{"L_description": "Generic Receipt"}))
}

func TestExtractRowDispatch(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"B_doc_date": "20251103",
		"R_paid_amount": "1000.00",
	}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
	}

	res := p.ExtractRow(context.Background(), Input{
		Text:        "Tax Invoice",
		Filename:    "inv.pdf",
		ClientTaxID: clients.Rabbit,
	})

	if res.Platform != "SHOPEE" {
		t.Errorf("Platform = %q, want SHOPEE", res.Platform)
	}
	if res.Row.Diag["_extraction_method"] != "rule_based_shopee" {
		t.Errorf("_extraction_method = %q, want rule_based_shopee", res.Row.Diag["_extraction_method"])
	}
	if res.Row.Diag["_platform_route"] != "SHOPEE" {
		t.Errorf("_platform_route = %q", res.Row.Diag["_platform_route"])
	}
	if res.Row.DocDate != "20251103" {
		t.Errorf("DocDate = %q, want 20251103", res.Row.DocDate)
	}
}

func TestExtractRowUnknownRoutesGeneric(t *testing.T) {
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SOME_NEW_PLATFORM"},
		Registry:   newTestRegistry(),
	}
	res := p.ExtractRow(context.Background(), Input{Text: "whatever"})

	if res.Platform != PlatformUnknown {
		t.Errorf("Platform = %q, want UNKNOWN", res.Platform)
	}
	if res.Row.Diag["_extraction_method"] != "generic" {
		t.Errorf("_extraction_method = %q, want generic", res.Row.Diag["_extraction_method"])
	}
}

func TestExtractRowClassifierFailureIsNotFatal(t *testing.T) {
	p := &Pipeline{
		Classifier: &mockClassifier{err: errors.New("classifier down")},
		Registry:   newTestRegistry(),
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x"})
	if res.Platform != PlatformUnknown {
		t.Errorf("Platform = %q, want UNKNOWN on classifier failure", res.Platform)
	}
}

func TestExtractRowPlatformHintSkipsClassifier(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteTikTok, staticExtractor(map[string]string{
		"R_paid_amount": "321.00",
	}))
	p := &Pipeline{
		// the classifier would send this elsewhere; the hint must win
		Classifier: &mockClassifier{label: "META"},
		Registry:   reg,
	}

	res := p.ExtractRow(context.Background(), Input{
		Text:         "no platform markers anywhere in this text",
		PlatformHint: RouteTikTok,
	})

	if res.Platform != "TIKTOK" {
		t.Errorf("Platform = %q, want TIKTOK from hint", res.Platform)
	}
	if res.Row.Diag["_extraction_method"] != "rule_based_tiktok" {
		t.Errorf("_extraction_method = %q, want rule_based_tiktok", res.Row.Diag["_extraction_method"])
	}
	if res.Row.Diag["_platform_route"] != RouteTikTok {
		t.Errorf("_platform_route = %q, want %s", res.Row.Diag["_platform_route"], RouteTikTok)
	}
}

func TestExtractRowEmptyHintUsesClassifier(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"R_paid_amount": "50.00",
	}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
	}
	res := p.ExtractRow(context.Background(), Input{Text: "Shopee seller statement", PlatformHint: "  "})
	if res.Platform != "SHOPEE" {
		t.Errorf("Platform = %q, want SHOPEE from classifier", res.Platform)
	}
}

func TestExtractRowExtractorErrorFallsBack(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteTikTok, failingExtractor("parse blew up"))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "TIKTOK"},
		Registry:   reg,
	}

	res := p.ExtractRow(context.Background(), Input{Text: "TikTok invoice"})

	if res.Row.Diag["_extraction_method"] != "generic_error_fallback" {
		t.Errorf("_extraction_method = %q, want generic_error_fallback", res.Row.Diag["_extraction_method"])
	}
	if !strings.Contains(res.Row.Diag["_extractor_error"], "parse blew up") {
		t.Errorf("_extractor_error = %q, want recorded cause", res.Row.Diag["_extractor_error"])
	}
}

func TestExtractRowExtractorErrorTruncated(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteTikTok, failingExtractor(strings.Repeat("e", 2000)))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "TIKTOK"},
		Registry:   reg,
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x"})
	if got := len(res.Row.Diag["_extractor_error"]); got > maxDiagErrorLen {
		t.Errorf("_extractor_error length = %d, want <= %d", got, maxDiagErrorLen)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 4, "abcd"},
		// each Thai character is three bytes; 4 lands mid-rune
		{"ภาษีหัก", 4, "ภ"},
		{"ภาษีหัก", 6, "ภา"},
	}
	for _, c := range cases {
		got := truncate(c.in, c.n)
		if got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", c.in, c.n)
		}
	}
}

func TestExtractRowEnhanceFillsMissingOnly(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"G_invoice_no": "TRSPEMKP00-00000-251203-0012589",
		"N_unit_price": "0.00",
	}))
	enh := &mockPatcher{result: PatchResult{
		Applied: true,
		Fields: map[string]string{
			"G_invoice_no": "SHOULD-NOT-WIN",
			"N_unit_price": "450.00",
			"T_note":       "never allowed",
		},
	}}
	p := &Pipeline{
		Classifier:           &mockClassifier{label: "SHOPEE"},
		Registry:             reg,
		Enhancer:             enh,
		FillMissingOnEnhance: true,
	}

	res := p.ExtractRow(context.Background(), Input{Text: "x", ClientTaxID: clients.Rabbit})

	if enh.calls != 1 {
		t.Fatalf("enhancer calls = %d, want 1", enh.calls)
	}
	if res.Row.InvoiceNo != "TRSPEMKP00-00000-251203-0012589" {
		t.Errorf("InvoiceNo = %q, filled field must not be overwritten", res.Row.InvoiceNo)
	}
	if res.Row.UnitPrice != "450.00" {
		t.Errorf("UnitPrice = %q, want 450.00 (0.00 counts as empty)", res.Row.UnitPrice)
	}
	if res.Row.Note != "" {
		t.Errorf("Note = %q, blacklisted field leaked through patch", res.Row.Note)
	}
	if got := res.Row.Diag["_extraction_method"]; got != "rule_based_shopee+ai" {
		t.Errorf("_extraction_method = %q, want +ai suffix", got)
	}
}

func TestExtractRowEnhanceSkippedForAdsPlatforms(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteMeta, staticExtractor(map[string]string{}))
	enh := &mockPatcher{result: PatchResult{Applied: true}}
	p := &Pipeline{
		Classifier: &mockClassifier{label: "META"},
		Registry:   reg,
		Enhancer:   enh,
	}
	p.ExtractRow(context.Background(), Input{Text: "x"})
	if enh.calls != 0 {
		t.Errorf("enhancer calls = %d, want 0 for META", enh.calls)
	}
}

func TestExtractRowEnhanceErrorRecordedNotFatal(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{}))
	enh := &mockPatcher{err: errors.New("model unavailable")}
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
		Enhancer:   enh,
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x"})
	if !strings.Contains(res.Row.Diag["_ai_errors"], "ai_enhance") {
		t.Errorf("_ai_errors = %q, want ai_enhance entry", res.Row.Diag["_ai_errors"])
	}
}

func TestExtractRowRepairPass(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"B_doc_date": "not-a-date",
	}))
	rep := &mockPatcher{result: PatchResult{
		Applied: true,
		Fields:  map[string]string{"B_doc_date": "20251103"},
	}}
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
		Repairer:   rep,
	}

	res := p.ExtractRow(context.Background(), Input{Text: "x"})

	if rep.calls != 1 {
		t.Fatalf("repairer calls = %d, want 1", rep.calls)
	}
	if len(rep.lastRq.ValidationErrors) == 0 {
		t.Error("repair request should carry the validation errors")
	}
	if res.Row.DocDate != "20251103" {
		t.Errorf("DocDate = %q, want repaired 20251103", res.Row.DocDate)
	}
	for _, e := range res.Errors {
		if strings.Contains(e, "date") {
			t.Errorf("date error still present after repair: %q", e)
		}
	}
}

func TestExtractRowRepairSkippedWhenValid(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"B_doc_date": "20251103",
	}))
	rep := &mockPatcher{result: PatchResult{Applied: true}}
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
		Repairer:   rep,
	}
	p.ExtractRow(context.Background(), Input{Text: "x"})
	if rep.calls != 0 {
		t.Errorf("repairer calls = %d, want 0 when the row validates", rep.calls)
	}
}

func TestExtractRowVendorResolution(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"E_tax_id_13":   "0105536092641",
		"D_vendor_code": "Shopee (Thailand) Co., Ltd.",
	}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
		Vendors:    &mockVendors{code: "C00012", ok: true},
	}

	res := p.ExtractRow(context.Background(), Input{Text: "x", ClientTaxID: clients.Rabbit})

	if res.Row.VendorCode != "C00012" {
		t.Errorf("VendorCode = %q, want C00012", res.Row.VendorCode)
	}
	if res.Row.Diag["_vendor_code_resolved"] != "C00012" {
		t.Error("vendor resolution diagnostic missing")
	}
}

func TestExtractRowVendorRejectsNonCanonicalCode(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"D_vendor_code": "Shopee",
	}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
		Vendors:    &mockVendors{code: "X1", ok: true},
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x", ClientTaxID: clients.Rabbit})
	if res.Row.VendorCode == "X1" {
		t.Error("non-canonical vendor code should not be applied")
	}
}

func TestExtractRowWalletPass(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{
		"shop_id": "253227155",
	}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x", ClientTaxID: clients.Rabbit})
	if res.Row.PaymentMethod != "EWL001" {
		t.Errorf("PaymentMethod = %q, want EWL001", res.Row.PaymentMethod)
	}
	if res.Row.Diag["_wallet_code_resolved"] != "EWL001" {
		t.Error("wallet resolution diagnostic missing")
	}
}

func TestExtractRowResolvesClientFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ClientTaxIDs = []string{clients.SHD}
	reg := newTestRegistry()
	reg.Register(RouteShopee, staticExtractor(map[string]string{}))
	p := &Pipeline{
		Classifier: &mockClassifier{label: "SHOPEE"},
		Registry:   reg,
	}
	res := p.ExtractRow(context.Background(), Input{Text: "x", Cfg: cfg})
	if res.Row.CompanyName != "SHD" {
		t.Errorf("CompanyName = %q, want SHD resolved from config", res.Row.CompanyName)
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shopee", "SHOPEE"},
		{" Meta ", "META"},
		{"THAI_TAX", "THAI_TAX"},
		{"UNKNOWN", "GENERIC"},
		{"", "GENERIC"},
		{"EBAY", "GENERIC"},
	}
	for _, tt := range tests {
		if got := NormalizeRoute(tt.in); got != tt.want {
			t.Errorf("NormalizeRoute(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if OutputPlatform("GENERIC") != "UNKNOWN" {
		t.Error(`OutputPlatform("GENERIC") should be UNKNOWN`)
	}
	if OutputPlatform("SPX") != "SPX" {
		t.Error("known routes pass through unchanged")
	}
}
