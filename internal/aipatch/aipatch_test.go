package aipatch

import (
	"strings"
	"testing"

	"github.com/dvloznov/peak-importer/internal/pipeline"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"a":"b"}`, `{"a":"b"}`},
		{"json fence", "```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"bare fence", "```\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"leading prose", "Here is the patch:\n{\"a\":\"b\"}", `{"a":"b"}`},
		{"trailing prose", "{\"a\":\"b\"}\nHope that helps!", `{"a":"b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePatch(t *testing.T) {
	raw := "```json\n" + `{
		"B_doc_date": "20251103",
		"N_unit_price": 450.5,
		"T_note": "never allowed",
		"U_group": "Policy Owned",
		"random_key": "dropped",
		"_extraction_hint": "kept",
		"G_invoice_no": ""
	}` + "\n```"

	fields, err := ParsePatch(raw)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}

	if fields["B_doc_date"] != "20251103" {
		t.Errorf("B_doc_date = %q", fields["B_doc_date"])
	}
	if fields["N_unit_price"] != "450.50" {
		t.Errorf("N_unit_price = %q, want 450.50", fields["N_unit_price"])
	}
	for _, k := range []string{"T_note", "U_group", "random_key", "G_invoice_no"} {
		if _, ok := fields[k]; ok {
			t.Errorf("%s should have been dropped", k)
		}
	}
	if fields["_extraction_hint"] != "kept" {
		t.Error("diagnostic-prefixed keys should survive sanitization")
	}
}

func TestParsePatchRejectsGarbage(t *testing.T) {
	if _, err := ParsePatch("not json at all"); err == nil {
		t.Error("want error for unparseable response")
	}
}

func TestBuildPromptRepairPass(t *testing.T) {
	p := buildPrompt(pipeline.PatchRequest{
		Input: pipeline.Input{
			Text:         "Invoice text here",
			Filename:     "inv.pdf",
			PlatformHint: "SHOPEE",
		},
		ValidationErrors: []string{"document date is not a valid YYYYMMDD date"},
	})
	for _, want := range []string{
		"B_doc_date",
		"U_group",
		"platform SHOPEE",
		"inv.pdf",
		"failed validation",
		"document date is not a valid YYYYMMDD date",
		"Invoice text here",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
