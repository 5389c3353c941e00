package config

import (
	"reflect"
	"testing"
)

func TestFromJSONDefaults(t *testing.T) {
	cfg, err := FromJSON(nil)
	if err != nil {
		t.Fatalf("FromJSON(nil): %v", err)
	}
	if cfg.CalculateWHT {
		t.Error("CalculateWHT should default off")
	}
	if !cfg.AutoDetectWHT {
		t.Error("AutoDetectWHT should default on")
	}
	if cfg.WHTRate != 0.03 {
		t.Errorf("WHTRate = %v, want 0.03", cfg.WHTRate)
	}
	if cfg.PNDWhenWHT != "53" || cfg.PNDWhenNoWHT != "53" {
		t.Errorf("PND defaults = %q/%q, want 53/53", cfg.PNDWhenWHT, cfg.PNDWhenNoWHT)
	}
}

func TestFromJSONLooseTypes(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"calculate_wht": "yes",
		"auto_detect_wht": 0,
		"wht_rate": "5%",
		"pnd_when_no_wht": "",
		"wht_override_existing": true,
		"client_tax_ids": "0105561071873, 0105563022918",
		"client_tags": ["SHD"]
	}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !cfg.CalculateWHT {
		t.Error(`calculate_wht "yes" should be truthy`)
	}
	if cfg.AutoDetectWHT {
		t.Error("auto_detect_wht 0 should disable detection")
	}
	if cfg.WHTRate != 0.05 {
		t.Errorf("wht_rate = %v, want 0.05", cfg.WHTRate)
	}
	if cfg.PNDWhenNoWHT != "53" {
		t.Errorf("empty pnd_when_no_wht should keep default, got %q", cfg.PNDWhenNoWHT)
	}
	if !cfg.WHTOverrideExisting {
		t.Error("wht_override_existing true not parsed")
	}
	want := []string{"0105561071873", "0105563022918"}
	if !reflect.DeepEqual(cfg.ClientTaxIDs, want) {
		t.Errorf("ClientTaxIDs = %v, want %v", cfg.ClientTaxIDs, want)
	}
	if cfg.ResolveClientTaxID() != "0105563022918" {
		t.Errorf("tag SHD should select 0105563022918, got %q", cfg.ResolveClientTaxID())
	}
}

func TestFromJSONWHTEnabledAlias(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"wht_enabled": "on"}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !cfg.CalculateWHT {
		t.Error("wht_enabled alias should enable calculation")
	}
}

func TestGLCodeMapShapes(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"gl_code_map": {
			"0105561071873": "520317",
			"0105563022918": {"MARKETPLACE": "520319", "ADS": "520212", "DEFAULT": "520000"}
		}
	}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	flat := cfg.GLCodeMap["0105561071873"]
	if flat.Code("ADS") != "520317" || flat.Code("MARKETPLACE") != "520317" {
		t.Errorf("flat entry should serve every bucket, got %q/%q", flat.Code("ADS"), flat.Code("MARKETPLACE"))
	}
	by := cfg.GLCodeMap["0105563022918"]
	if got := by.Code("ADS"); got != "520212" {
		t.Errorf("ADS code = %q, want 520212", got)
	}
	if got := by.Code("MARKETPLACE"); got != "520319" {
		t.Errorf("MARKETPLACE code = %q, want 520319", got)
	}
	if got := by.Code("OTHER"); got != "520000" {
		t.Errorf("unknown bucket should use DEFAULT, got %q", got)
	}
}

func TestResolveClientTaxID(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit single", Config{ClientTaxID: "0105565027615", ClientTaxIDs: []string{"0105561071873"}}, "0105565027615"},
		{"single-element list", Config{ClientTaxIDs: []string{"0105561071873"}}, "0105561071873"},
		{"tag picks from list", Config{ClientTaxIDs: []string{"0105561071873", "0105565027615"}, ClientTags: []string{"topone"}}, "0105565027615"},
		{"tag not in list falls back first", Config{ClientTaxIDs: []string{"0105561071873", "0105563022918"}, ClientTags: []string{"TOPONE"}}, "0105561071873"},
		{"empty", Config{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolveClientTaxID(); got != tt.want {
				t.Errorf("ResolveClientTaxID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAsList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{`["x","y"]`, []string{"x", "y"}},
		{`[]`, nil},
		{`"one"`, []string{"one"}},
	}
	for _, tt := range tests {
		if got := AsList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("AsList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "Yes", "ON", "enabled", " y "} {
		if !Truthy(v) {
			t.Errorf("Truthy(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no", "off", "maybe"} {
		if Truthy(v) {
			t.Errorf("Truthy(%q) = true, want false", v)
		}
	}
}
