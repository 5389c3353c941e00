package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/dvloznov/peak-importer/internal/pipeline"
)

var reGenericInvNo = regexp.MustCompile(`(?i)(?:Invoice\s*No\.?|Tax\s*Invoice\s*/\s*Receipt|Receipt\s*No\.?)\s*[:：]?\s*([A-Z0-9\-_/.]{8,})`)

// Generic is the fallback extractor for documents no platform rule set
// claims. It pulls whatever universally-shaped fields it can find and
// leaves the rest to downstream defaults.
type Generic struct{}

func (Generic) Extract(ctx context.Context, in pipeline.Input) (map[string]string, error) {
	t := normalizeText(in.Text)
	row := map[string]string{
		"M_qty": "1",
	}
	if strings.TrimSpace(t) == "" {
		return row, nil
	}

	if m := reGenericInvNo.FindStringSubmatch(t); m != nil {
		inv := compactNoWS(m[1])
		row["C_reference"] = inv
		row["G_invoice_no"] = inv
	}

	if dd := dateFromText(t); dd != "" {
		row["B_doc_date"] = dd
	}

	if v := vendorTaxID(t, in.ClientTaxID); v != "" {
		row["E_tax_id_13"] = v
	}

	if total := amountNearKeyword(t, reTotalIncl); total != "" {
		row["N_unit_price"] = total
		row["R_paid_amount"] = total
	}

	return row, nil
}
