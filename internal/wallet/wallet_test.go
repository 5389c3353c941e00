package wallet

import (
	"strings"
	"testing"

	"github.com/dvloznov/peak-importer/internal/clients"
)

func TestResolveDirectSellerID(t *testing.T) {
	got := Resolve(clients.Rabbit, Query{SellerID: "253227155"})
	if got != "EWL001" {
		t.Errorf("Resolve(RABBIT, 253227155) = %q, want EWL001", got)
	}
}

func TestResolveUnknownSellerID(t *testing.T) {
	got := Resolve(clients.Rabbit, Query{SellerID: "999999999"})
	if got != "" {
		t.Errorf("Resolve(RABBIT, unknown id) = %q, want empty", got)
	}
}

func TestResolveUnknownClient(t *testing.T) {
	got := Resolve("1234567890123", Query{SellerID: "253227155", ShopName: "70mai"})
	if got != "" {
		t.Errorf("Resolve(unknown client) = %q, want empty", got)
	}
}

func TestResolveThaiDigitsAndPunctuation(t *testing.T) {
	got := Resolve(clients.Rabbit, Query{SellerID: "๒๕๓ ๒๒๗-๑๕๕"})
	if got != "EWL001" {
		t.Errorf("Thai-digit seller id not normalized: got %q", got)
	}
}

func TestResolveAlphanumericID(t *testing.T) {
	got := Resolve(clients.TopOne, Query{SellerID: "th1k0cdiml"})
	if got != "EWL003" {
		t.Errorf("Resolve(TOPONE, th1k0cdiml) = %q, want EWL003", got)
	}
}

func TestResolveIDFromText(t *testing.T) {
	text := "Tax Invoice\nSeller ID: 628286975\nTotal 1,000.00"
	got := Resolve(clients.SHD, Query{Text: text})
	if got != "EWL001" {
		t.Errorf("Resolve from labeled text id = %q, want EWL001", got)
	}

	text2 := "Lazada seller code TH1JSB2Z2K for this invoice"
	got2 := Resolve(clients.TopOne, Query{Text: text2})
	if got2 != "EWL004" {
		t.Errorf("Resolve from TH-prefixed text id = %q, want EWL004", got2)
	}
}

func TestResolveShopKeywordLongestFirst(t *testing.T) {
	// "ankerthailandstore" contains "anker"; both map to EWL001, but the
	// longest-first order matters when keys overlap across wallets, e.g.
	// "xiaomi.thailand" vs "xiaomi_home_appliances" style collisions.
	got := Resolve(clients.SHD, Query{ShopName: "Shopee-AnkerThailandStore"})
	if got != "EWL001" {
		t.Errorf("keyword resolve = %q, want EWL001", got)
	}

	// "levoitofficialstore" must match its own wallet, not a shorter key
	// from another entry.
	got2 := Resolve(clients.SHD, Query{ShopName: "levoitofficialstore (official)"})
	if got2 != "EWL003" {
		t.Errorf("keyword resolve = %q, want EWL003", got2)
	}
}

func TestResolveGuardEntriesNeverMatch(t *testing.T) {
	got := Resolve(clients.TopOne, Query{ShopName: "Lazada"})
	if got != "" {
		t.Errorf("guard keyword resolved to %q, want empty", got)
	}
	got2 := Resolve(clients.TopOne, Query{ShopName: "TikTok"})
	if got2 != "" {
		t.Errorf("guard keyword resolved to %q, want empty", got2)
	}
}

func TestResolveKeywordFromTextFallback(t *testing.T) {
	text := "Receipt for order — shop: Vinko Thailand Store, thanks!"
	got := Resolve(clients.TopOne, Query{Text: text})
	if got != "EWL001" {
		t.Errorf("text keyword fallback = %q, want EWL001", got)
	}
}

func TestResolveNeverReturnsPlatformName(t *testing.T) {
	for _, client := range []string{clients.Rabbit, clients.SHD, clients.TopOne} {
		got := Resolve(client, Query{ShopName: "Shopee Lazada TikTok", Text: "shopee lazada tiktok"})
		for _, platform := range []string{"shopee", "lazada", "tiktok"} {
			if strings.EqualFold(got, platform) {
				t.Fatalf("Resolve returned platform name %q", got)
			}
		}
		if got != "" && !strings.HasPrefix(got, "EWL") {
			t.Fatalf("Resolve returned non-wallet value %q", got)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"253227155", "253227155"},
		{" 253 227 155 ", "253227155"},
		{"th1k0cdiml", "TH1K0CDIML"},
		{"๑๒๓๔๕", "12345"},
		{"--", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSellerID(t *testing.T) {
	if got := ExtractSellerID("seller id: 1234"); got != "" {
		t.Errorf("too-short digit id accepted: %q", got)
	}
	if got := ExtractSellerID("Shop ID # 516516644"); got != "516516644" {
		t.Errorf("ExtractSellerID = %q, want 516516644", got)
	}
	if got := ExtractSellerID("code THLCTGW4XH"); got != "THLCTGW4XH" {
		t.Errorf("ExtractSellerID = %q, want THLCTGW4XH", got)
	}
}
