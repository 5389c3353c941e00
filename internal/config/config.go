// Package config carries the per-run options of the extraction pipeline:
// withholding-tax policy switches, client identity hints, and per-company
// account-code maps. Configs arrive as JSON (from the API or job payloads)
// with loosely-typed values, so parsing is tolerant: booleans may be "1",
// "yes", "on"; lists may be JSON arrays, comma-separated strings, or single
// values.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/peak-importer/internal/clients"
	"github.com/dvloznov/peak-importer/internal/wht"
)

// GLCodes is the account-code entry for one client: either a single flat
// code, or codes per platform bucket (ADS/MARKETPLACE/DEFAULT).
type GLCodes struct {
	Flat     string
	ByBucket map[string]string
}

// UnmarshalJSON accepts both "520317" and {"MARKETPLACE": "520317", ...}.
func (g *GLCodes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		g.Flat = strings.TrimSpace(s)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("gl_code_map entry: want string or object, got %s", string(b))
	}
	g.ByBucket = make(map[string]string, len(m))
	for k, v := range m {
		g.ByBucket[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return nil
}

// Code returns the account code for a platform bucket, falling back to the
// entry's DEFAULT, then its flat code.
func (g GLCodes) Code(bucket string) string {
	if g.ByBucket != nil {
		if v := strings.TrimSpace(g.ByBucket[bucket]); v != "" {
			return v
		}
		if v := strings.TrimSpace(g.ByBucket["DEFAULT"]); v != "" {
			return v
		}
	}
	return g.Flat
}

// Config is the recognized option set.
type Config struct {
	CalculateWHT        bool
	AutoDetectWHT       bool
	WHTRate             float64
	PNDWhenWHT          string
	PNDWhenNoWHT        string
	WHTOverrideExisting bool

	ClientTaxID  string
	ClientTaxIDs []string
	ClientTags   []string

	GLCodeMap          map[string]GLCodes
	CompanyNameByTaxID map[string]string
}

// Default returns the production defaults: auto-detection on, calculation
// off, 3% fallback rate, filing code 53 with or without withholding.
func Default() *Config {
	return &Config{
		AutoDetectWHT: true,
		WHTRate:       0.03,
		PNDWhenWHT:    "53",
		PNDWhenNoWHT:  "53",
	}
}

// rawConfig mirrors the wire shape with loosely-typed values.
type rawConfig struct {
	CalculateWHT        json.RawMessage    `json:"calculate_wht"`
	WHTEnabled          json.RawMessage    `json:"wht_enabled"`
	AutoDetectWHT       json.RawMessage    `json:"auto_detect_wht"`
	WHTRate             json.RawMessage    `json:"wht_rate"`
	PNDWhenWHT          string             `json:"pnd_when_wht"`
	PNDWhenNoWHT        string             `json:"pnd_when_no_wht"`
	WHTOverrideExisting json.RawMessage    `json:"wht_override_existing"`
	ClientTaxID         string             `json:"client_tax_id"`
	ClientTaxIDs        json.RawMessage    `json:"client_tax_ids"`
	ClientTags          json.RawMessage    `json:"client_tags"`
	GLCodeMap           map[string]GLCodes `json:"gl_code_map"`
	CompanyNameByTaxID  map[string]string  `json:"company_name_by_tax_id"`
}

// FromJSON parses a config document on top of the defaults. An empty or
// null document yields Default().
func FromJSON(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if raw.CalculateWHT != nil {
		cfg.CalculateWHT = Truthy(scalarString(raw.CalculateWHT))
	} else if raw.WHTEnabled != nil {
		cfg.CalculateWHT = Truthy(scalarString(raw.WHTEnabled))
	}
	if raw.AutoDetectWHT != nil {
		cfg.AutoDetectWHT = Truthy(scalarString(raw.AutoDetectWHT))
	}
	if raw.WHTRate != nil {
		if r := wht.ToFloat(scalarString(raw.WHTRate)); r > 0 {
			cfg.WHTRate = r
		}
	}
	if v := strings.TrimSpace(raw.PNDWhenWHT); v != "" {
		cfg.PNDWhenWHT = v
	}
	if v := strings.TrimSpace(raw.PNDWhenNoWHT); v != "" {
		cfg.PNDWhenNoWHT = v
	}
	if raw.WHTOverrideExisting != nil {
		cfg.WHTOverrideExisting = Truthy(scalarString(raw.WHTOverrideExisting))
	}

	cfg.ClientTaxID = strings.TrimSpace(raw.ClientTaxID)
	cfg.ClientTaxIDs = AsList(scalarString(raw.ClientTaxIDs))
	cfg.ClientTags = AsList(scalarString(raw.ClientTags))
	cfg.GLCodeMap = raw.GLCodeMap
	cfg.CompanyNameByTaxID = raw.CompanyNameByTaxID

	return cfg, nil
}

// WHT converts the relevant options into the policy-engine config.
func (c *Config) WHT() wht.Config {
	out := wht.Config{
		Calculate:        c.CalculateWHT,
		AutoDetect:       c.AutoDetectWHT,
		Rate:             c.WHTRate,
		PNDWhenWHT:       c.PNDWhenWHT,
		PNDWhenNoWHT:     c.PNDWhenNoWHT,
		OverrideExisting: c.WHTOverrideExisting,
	}
	if out.Rate <= 0 {
		out.Rate = 0.03
	}
	if out.PNDWhenWHT == "" {
		out.PNDWhenWHT = "53"
	}
	if out.PNDWhenNoWHT == "" {
		out.PNDWhenNoWHT = "53"
	}
	return out
}

// ResolveClientTaxID picks the operating company for this run: the explicit
// single id, a single-element id list, a tag that selects one id from a
// multi-id list, then the first listed id. Returns "" when the config names
// no client at all.
func (c *Config) ResolveClientTaxID() string {
	if c == nil {
		return ""
	}
	if v := strings.TrimSpace(c.ClientTaxID); v != "" {
		return v
	}
	ids := c.ClientTaxIDs
	if len(ids) == 1 {
		return strings.TrimSpace(ids[0])
	}
	for _, t := range c.ClientTags {
		tax := clients.TaxIDByTag[strings.ToUpper(strings.TrimSpace(t))]
		if tax == "" {
			continue
		}
		for _, id := range ids {
			if strings.TrimSpace(id) == tax {
				return tax
			}
		}
	}
	if len(ids) > 0 {
		return strings.TrimSpace(ids[0])
	}
	return ""
}

// scalarString renders a raw JSON scalar (string, number, bool, or list) as
// the string the tolerant parsers expect.
func scalarString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// AsList splits a loosely-encoded list: a JSON array string, a
// comma-separated string, or a single bare value.
func AsList(v string) []string {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			var out []string
			for _, x := range arr {
				if t := strings.TrimSpace(x); t != "" {
					out = append(out, t)
				}
			}
			return out
		}
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		var one string
		if err := json.Unmarshal([]byte(s), &one); err == nil {
			if t := strings.TrimSpace(one); t != "" {
				return []string{t}
			}
			return nil
		}
	}
	if strings.Contains(s, ",") {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if t := strings.TrimSpace(part); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	return []string{s}
}

// Truthy interprets the flag spellings configs arrive with.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on", "enable", "enabled":
		return true
	}
	return false
}
