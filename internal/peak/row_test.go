package peak

import (
	"strings"
	"testing"
)

func TestKeysOrderAndCount(t *testing.T) {
	keys := Keys()
	if len(keys) != 22 {
		t.Fatalf("Keys() returned %d keys, want 22", len(keys))
	}
	if keys[0] != "A_seq" || keys[2] != "B_doc_date" || keys[21] != "U_group" {
		t.Errorf("unexpected key order: first=%s third=%s last=%s", keys[0], keys[2], keys[21])
	}
}

func TestLockDropsExtrasKeepsDiagnostics(t *testing.T) {
	r := FromMap(map[string]string{
		"C_reference":        "TTSTH20250008665805",
		"seller_id":          "253227155",
		"_extraction_method": "rule_based_tiktok",
		"bogus_key":          "junk",
	})

	locked := r.Lock()

	m := locked.Map()
	for _, k := range Keys() {
		if _, ok := m[k]; !ok {
			t.Errorf("locked row missing contractual key %q", k)
		}
	}
	if len(m) != 22+1 {
		t.Errorf("locked map has %d keys, want 22 columns + 1 diagnostic", len(m))
	}
	if m["_extraction_method"] != "rule_based_tiktok" {
		t.Errorf("diagnostic key lost during lock: %v", m["_extraction_method"])
	}
	for k := range m {
		if !IsColumn(k) && !strings.HasPrefix(k, DiagPrefix) {
			t.Errorf("locked row leaked non-contractual key %q", k)
		}
	}
}

func TestGetSetRouting(t *testing.T) {
	r := New()
	r.Set("R_paid_amount", "151000.00")
	if r.PaidAmount != "151000.00" {
		t.Errorf("Set did not reach struct field: %q", r.PaidAmount)
	}
	r.Set("_platform", "TIKTOK")
	if r.Diag["_platform"] != "TIKTOK" {
		t.Errorf("diagnostic key not stored in Diag")
	}
	r.Set("shop_name", "vinko")
	if r.Extra["shop_name"] != "vinko" {
		t.Errorf("extra key not stored in Extra")
	}
}

func TestMergeFillMissing(t *testing.T) {
	r := FromMap(map[string]string{
		"E_tax_id_13":   "0105566214176",
		"N_unit_price":  "0.00",
		"R_paid_amount": "151000.00",
	})

	r.Merge(map[string]string{
		"E_tax_id_13":   "9999999999999", // already filled, must not change
		"N_unit_price":  "151000.00",     // "0.00" counts as empty
		"R_paid_amount": "1.00",          // filled, must not change
		"K_account":     "520317",        // blacklisted
		"T_note":        "junk",          // blacklisted
		"B_doc_date":    "",              // empty patch value ignored
	}, true)

	if r.TaxID13 != "0105566214176" {
		t.Errorf("fill-missing overwrote a filled field: %q", r.TaxID13)
	}
	if r.UnitPrice != "151000.00" {
		t.Errorf("fill-missing did not treat 0.00 as empty: %q", r.UnitPrice)
	}
	if r.PaidAmount != "151000.00" {
		t.Errorf("fill-missing overwrote paid amount: %q", r.PaidAmount)
	}
	if r.Account != "" || r.Note != "" {
		t.Errorf("blacklisted keys merged: account=%q note=%q", r.Account, r.Note)
	}
}

func TestMergeOverwrite(t *testing.T) {
	r := FromMap(map[string]string{"B_doc_date": "20251201"})
	r.Merge(map[string]string{"B_doc_date": "20251203", "U_group": "hax"}, false)
	if r.DocDate != "20251203" {
		t.Errorf("overwrite merge did not apply: %q", r.DocDate)
	}
	if r.Group != "" {
		t.Errorf("blacklist ignored in overwrite mode: %q", r.Group)
	}
}

func TestSanitizePatch(t *testing.T) {
	got := SanitizePatch(map[string]string{
		"C_reference": "TRSPEMKP00-00000-251203-0012589",
		"K_account":   "520317",
		"random":      "x",
		"_wht_note":   "detected",
		"G_invoice_no": "",
	})
	if _, ok := got["K_account"]; ok {
		t.Error("blacklisted key survived sanitize")
	}
	if _, ok := got["random"]; ok {
		t.Error("unknown key survived sanitize")
	}
	if got["C_reference"] == "" || got["_wht_note"] == "" {
		t.Errorf("expected keys dropped: %v", got)
	}
}
