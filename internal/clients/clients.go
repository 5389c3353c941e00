// Package clients holds the closed set of operating-company tax identities
// the importer produces rows for, and the lookup bucket each one selects.
package clients

import "strings"

// 13-digit tax ids of the operating companies.
const (
	Rabbit = "0105561071873"
	SHD    = "0105563022918"
	TopOne = "0105565027615"
)

// TaxIDByTag maps a short company tag to its tax id. Used when a config
// carries multiple client tax ids plus a tag to disambiguate.
var TaxIDByTag = map[string]string{
	"RABBIT": Rabbit,
	"SHD":    SHD,
	"TOPONE": TopOne,
}

// DefaultCompanyName is the display name used when neither config nor
// environment overrides one.
var DefaultCompanyName = map[string]string{
	Rabbit: "RABBIT",
	SHD:    "SHD",
	TopOne: "TOPONE",
}

// Bucket returns the lookup-table bucket for a client tax id, or "" when the
// id is not one of ours. Unknown clients have no wallet or GL tables, so an
// empty bucket is a terminal state for resolution.
func Bucket(clientTaxID string) string {
	d := digitsOnly(clientTaxID)
	switch d {
	case Rabbit:
		return "RABBIT"
	case SHD:
		return "SHD"
	case TopOne:
		return "TOPONE"
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
